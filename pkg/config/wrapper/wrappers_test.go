package wrapper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/dutch-auction/pkg/config"
	"github.com/code-payments/dutch-auction/pkg/config/memory"
)

func TestFallbackBehaviour(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	wrapper := NewUint64Config(source, 99)

	// Default without a value
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 99, val)

	source.SetValue(uint64(42))
	assert.EqualValues(t, 42, wrapper.Get(ctx))

	// The last observed value survives source errors
	source.InduceErrors()
	val, err = wrapper.GetSafe(ctx)
	assert.Error(t, err)
	assert.EqualValues(t, 42, val)

	// and conversion errors
	source.StopInducingErrors()
	source.SetValue([]byte("not a number"))
	val, err = wrapper.GetSafe(ctx)
	assert.Error(t, err)
	assert.EqualValues(t, 42, val)

	source.SetValue("unsupported")
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.EqualValues(t, 42, val)

	// Clearing the value restores the default
	source.ClearValue()
	assert.EqualValues(t, 99, wrapper.Get(ctx))

	wrapper.Shutdown()
	_, err = wrapper.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestConversions(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name     string
		newValue func(config.Config) interface{ Get(context.Context) interface{} }
		raw      interface{}
		expected interface{}
	}{
		{"bool bytes", boolOf, []byte("true"), true},
		{"bool", boolOf, false, false},
		{"uint64 bytes", uint64Of, []byte("12345"), uint64(12345)},
		{"uint", uint64Of, uint(7), uint64(7)},
		{"int", uint64Of, 8, uint64(8)},
		{"float64 bytes", float64Of, []byte("2.5"), 2.5},
		{"float64", float64Of, 0.25, 0.25},
		{"string bytes", stringOf, []byte("value"), "value"},
		{"string", stringOf, "value", "value"},
		{"duration bytes", durationOf, []byte("1m30s"), 90 * time.Second},
		{"duration seconds", durationOf, []byte("45"), 45 * time.Second},
		{"duration", durationOf, time.Millisecond, time.Millisecond},
	} {
		t.Run(tc.name, func(t *testing.T) {
			value := tc.newValue(memory.NewConfig(tc.raw))
			assert.Equal(t, tc.expected, value.Get(ctx))
		})
	}

	_, err := NewUint64Config(memory.NewConfig(-1), 0).GetSafe(ctx)
	assert.Error(t, err)
	_, err = NewBoolConfig(memory.NewConfig([]byte("maybe")), false).GetSafe(ctx)
	assert.Error(t, err)
	_, err = NewDurationConfig(memory.NewConfig([]byte("soon")), 0).GetSafe(ctx)
	assert.Error(t, err)
}

type anyValue[T any] struct {
	config.Value[T]
}

func (v anyValue[T]) Get(ctx context.Context) interface{} {
	return v.Value.Get(ctx)
}

func boolOf(c config.Config) interface{ Get(context.Context) interface{} } {
	return anyValue[bool]{NewBoolConfig(c, true)}
}

func uint64Of(c config.Config) interface{ Get(context.Context) interface{} } {
	return anyValue[uint64]{NewUint64Config(c, 0)}
}

func float64Of(c config.Config) interface{ Get(context.Context) interface{} } {
	return anyValue[float64]{NewFloat64Config(c, 0)}
}

func stringOf(c config.Config) interface{ Get(context.Context) interface{} } {
	return anyValue[string]{NewStringConfig(c, "")}
}

func durationOf(c config.Config) interface{ Get(context.Context) interface{} } {
	return anyValue[time.Duration]{NewDurationConfig(c, 0)}
}
