package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this page aligned max int64 when memory is unrestricted
const unrestrictedCgroupV1Limit = 9223372036854771712

var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",                   // cgroup v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // cgroup v1
}

// GetTotalMemory returns the memory available to the process, honouring a
// container memory limit when one is set.
func GetTotalMemory() uint64 {
	total := memory.TotalMemory()
	for _, path := range cgroupLimitFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if limit, ok := parseCgroupLimit(string(raw)); ok && limit < total {
			return limit
		}
	}
	return total
}

func parseCgroupLimit(raw string) (uint64, bool) {
	value := strings.TrimSpace(raw)
	if value == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(value, 10, 64)
	if err != nil || limit == 0 || limit >= unrestrictedCgroupV1Limit {
		return 0, false
	}
	return limit, true
}
