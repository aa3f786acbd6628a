package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 10000; i++ {
		assert.True(t, l.Allow(""))
	}
	assert.NoError(t, l.Wait(context.Background(), ""))
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2))

	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))

	// Keys are limited independently
	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow("b"))
	}
	assert.False(t, l.Allow("b"))
}

func TestLocalRateLimiter_FractionalLimit(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(0.5))

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLocalRateLimiter_Wait(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(1))
	require.NoError(t, l.Wait(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "a"))
}
