package wrapper

import (
	"context"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/config"
	"github.com/code-payments/solana-account-creator/pkg/config/memory"
)

type typedConfig[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

// testLifecycle runs the behaviour shared by every wrapper: defaults, overrides,
// last known values on error, byte conversion, and shutdown.
func testLifecycle[T any](t *testing.T, mock *memory.Config, wrapper typedConfig[T], defaultValue, overridenValue T, encoded []byte) {
	ctx := context.Background()

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// The overriden value is returned when set
	mock.SetValue(overridenValue)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, overridenValue, val)
	assert.Equal(t, overridenValue, wrapper.Get(ctx))

	// The last observed config value is returned on error
	mock.InduceErrors()
	val, err = wrapper.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, overridenValue, val)
	assert.Equal(t, overridenValue, wrapper.Get(ctx))

	// The default value is returned when the override no longer has a value
	mock.StopInducingErrors()
	mock.ClearValue()
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)

	// Verify conversion from a byte array
	mock.SetValue(encoded)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, overridenValue, val)

	// Return an unsupported source value type, keeping the last value
	mock.SetValue(struct{}{})
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, overridenValue, val)

	// Shutdown via the wrapper
	wrapper.Shutdown()
	_, err = wrapper.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestBoolConfig(t *testing.T) {
	mock := memory.NewConfig(nil)
	testLifecycle[bool](t, mock, NewBoolConfig(mock, true), true, false, []byte("false"))

	mock = memory.NewConfig([]byte("not a bool"))
	val, err := NewBoolConfig(mock, true).GetSafe(context.Background())
	assert.Error(t, err)
	assert.True(t, val)
}

func TestUint64Config(t *testing.T) {
	mock := memory.NewConfig(nil)
	testLifecycle[uint64](t, mock, NewUint64Config(mock, math.MaxUint64), math.MaxUint64, 10, []byte("10"))

	// Set the mock to a uint
	mock = memory.NewConfig(uint(42))
	val, err := NewUint64Config(mock, 0).GetSafe(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), val)

	mock.SetValue([]byte("-1"))
	_, err = NewUint64Config(mock, 0).GetSafe(context.Background())
	assert.Error(t, err)
}

func TestFloat64Config(t *testing.T) {
	mock := memory.NewConfig(nil)
	testLifecycle[float64](t, mock, NewFloat64Config(mock, 10), 10, 0.5, []byte(strconv.FormatFloat(0.5, 'f', -1, 64)))
}

func TestStringConfig(t *testing.T) {
	mock := memory.NewConfig(nil)
	testLifecycle[string](t, mock, NewStringConfig(mock, "charondev"), "charondev", "override", []byte("override"))
}

func TestDurationConfig(t *testing.T) {
	mock := memory.NewConfig(nil)
	testLifecycle[time.Duration](t, mock, NewDurationConfig(mock, 90*time.Second), 90*time.Second, -2*time.Hour, []byte((-2 * time.Hour).String()))

	mock = memory.NewConfig([]byte("cannot convert"))
	val, err := NewDurationConfig(mock, time.Second).GetSafe(context.Background())
	require.Error(t, err)
	assert.Equal(t, time.Second, val)
}
