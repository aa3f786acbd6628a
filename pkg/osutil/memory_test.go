package osutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCgroupLimit(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		expected uint64
		ok       bool
	}{
		{"max\n", 0, false},
		{"9223372036854771712\n", 0, false},
		{"0", 0, false},
		{"garbage", 0, false},
		{"536870912\n", 536870912, true},
	} {
		limit, ok := parseCgroupLimit(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.expected, limit, tc.raw)
	}

	assert.True(t, GetTotalMemory() > 0)
}
