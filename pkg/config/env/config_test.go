package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/dutch-auction/pkg/config"
)

func TestConfig(t *testing.T) {
	const key = "ENV_CONFIG_TEST_VAR"
	ctx := context.Background()

	c := NewConfig(key)
	v, err := c.Get(ctx)
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)

	// Values are read on each call
	t.Setenv(key, "value")
	v, err = c.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	t.Setenv(key, "")
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedConfigs(t *testing.T) {
	ctx := context.Background()

	assert.EqualValues(t, 10, NewUint64Config("ENV_CONFIG_TEST_UINT", 10).Get(ctx))
	t.Setenv("ENV_CONFIG_TEST_UINT", "25")
	assert.EqualValues(t, 25, NewUint64Config("ENV_CONFIG_TEST_UINT", 10).Get(ctx))

	t.Setenv("ENV_CONFIG_TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, NewDurationConfig("env_config_test_duration", time.Second).Get(ctx))

	t.Setenv("ENV_CONFIG_TEST_BOOL", "true")
	assert.True(t, NewBoolConfig("ENV_CONFIG_TEST_BOOL", false).Get(ctx))
}
