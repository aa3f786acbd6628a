package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFor(t *testing.T) {
	var calls int
	require.NoError(t, WaitFor(time.Second, time.Millisecond, func() bool {
		calls++
		return calls == 3
	}))
	assert.Equal(t, 3, calls)

	require.Error(t, WaitFor(50*time.Millisecond, 25*time.Millisecond, func() bool {
		return false
	}))

	require.Error(t, WaitFor(50*time.Millisecond, 100*time.Millisecond, func() bool {
		return true
	}))
}

func TestIsVerbose(t *testing.T) {
	assert.False(t, isVerbose([]string{"pkg.test", "-test.run=TestWaitFor"}))
	assert.True(t, isVerbose([]string{"pkg.test", "-test.v=true"}))
	assert.True(t, isVerbose([]string{"pkg.test", "-test.v"}))
}
