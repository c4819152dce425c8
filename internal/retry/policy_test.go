package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/config"
	"github.com/strataworks/borevault/internal/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
}

func TestNewPolicyClampsInitial(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)
}

func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(config.RetryBackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, 100*time.Millisecond, fixed.Delay(i), "fixed attempt %d", i)
	}

	linear := NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	cases := map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 250 * time.Millisecond,
		4: 250 * time.Millisecond,
	}
	for attempt, want := range cases {
		assert.Equal(t, want, linear.Delay(attempt), "linear attempt %d", attempt)
	}

	exp := NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	expCases := map[int]time.Duration{
		1: 50 * time.Millisecond,
		2: 100 * time.Millisecond,
		3: 160 * time.Millisecond,
		4: 160 * time.Millisecond,
	}
	for attempt, want := range expCases {
		assert.Equal(t, want, exp.Delay(attempt), "exp attempt %d", attempt)
	}
}

func TestDelayEdgeCases(t *testing.T) {
	p := NewPolicy(config.RetryBackoffLinear, 10*time.Millisecond, 20*time.Millisecond, 1)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Duration(0), p.Delay(-1))
}

func TestUnknownModeFallsBack(t *testing.T) {
	p := NewPolicy("weird", 250*time.Millisecond, 500*time.Millisecond, 1)
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{
		Backoff:      "Exponential",
		InitialDelay: "200ms",
		MaxDelay:     "2s",
		MaxRetries:   4,
	})
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 200*time.Millisecond, p.Initial)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, 4, p.MaxRetries)

	// empty section keeps defaults
	assert.Equal(t, DefaultPolicy(), FromConfig(config.RetryConfig{}))
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Initial: 0, Max: time.Second, MaxRetries: 1}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 0, MaxRetries: 1}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 2 * time.Second, MaxRetries: -1}.Validate())
	assert.NoError(t, Policy{Initial: time.Second, Max: 2 * time.Second, MaxRetries: 0}.Validate())
}

func TestDoRetriesTransportErrors(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New(errors.KindTransport, "connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New(errors.KindSchemaValidation, "bad row")
	})
	assert.True(t, errors.IsKind(err, errors.KindSchemaValidation))
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New(errors.KindTransport, "still down")
	})
	assert.True(t, errors.IsKind(err, errors.KindTransport))
	assert.Equal(t, 3, calls)
}
