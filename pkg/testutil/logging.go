package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Importing testutil silences logrus unless tests run verbosely, in which
// case everything down to trace level is written.
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	if !isVerbose(os.Args) {
		logrus.StandardLogger().Out = io.Discard
	}
}

func isVerbose(args []string) bool {
	for _, arg := range args {
		if arg == "-test.v" || arg == "-test.v=true" || strings.HasPrefix(arg, "-test.v=test2json") {
			return true
		}
	}
	return false
}
