package metrics

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestForwardedMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.StandardLogger())
	entry.Message = "failed to buy auction"
	assert.Equal(t, "failed to buy auction", forwardedMessage(entry))

	entry = entry.WithFields(logrus.Fields{
		"auction": "abc",
	}).WithError(errors.New("price moved"))
	entry.Message = "failed to buy auction"
	assert.Equal(t, `message="failed to buy auction", error="price moved", data={"auction":"abc"}`, forwardedMessage(entry))
}
