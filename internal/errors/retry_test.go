package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:   max,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterLockReleased(t *testing.T) {
	// Given: a lock that is held for two attempts
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return IndexLocked("/x.db")
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetry(5), fn)

	// Then: succeeds on the third attempt
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	want := InvalidRoot("/missing", nil)

	err := Retry(context.Background(), fastRetry(5), func() error {
		attempts++
		return want
	})

	assert.Same(t, want, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0

	err := Retry(context.Background(), fastRetry(2), func() error {
		attempts++
		return IndexLocked("/x.db")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.True(t, HasCode(err, ErrCodeIndexLocked))
	assert.Equal(t, 3, attempts)
}

func TestRetry_CustomPredicate(t *testing.T) {
	attempts := 0
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(error) bool { return true }

	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("plain")
	})

	assert.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	// Given: an already cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, fastRetry(3), func() error {
		attempts++
		return nil
	})

	// Then: nothing runs
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestDefaultRetryConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Greater(t, cfg.MaxRetries, 0)
	assert.Greater(t, cfg.InitialDelay, time.Duration(0))
	assert.GreaterOrEqual(t, cfg.MaxDelay, cfg.InitialDelay)
	assert.Greater(t, cfg.Multiplier, 1.0)
}
