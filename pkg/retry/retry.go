package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultInterval    = 500 * time.Millisecond
)

type Operation func() error

type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	// 0 means bounded by MaxElapsedTime only
	MaxRetries uint64
	OnRetry    func(error, time.Duration)
}

// Exponential retries fn with exponential backoff until it succeeds, returns a
// Permanent error, the context ends or the budget is exhausted.
func Exponential(ctx context.Context, fn Operation, cfg ExponentialConfig) error {
	if cfg.InitialInterval <= 0 {
		return errors.New("initial interval must be > 0")
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialInterval
	if cfg.MaxInterval > 0 {
		eb.MaxInterval = cfg.MaxInterval
	}
	if cfg.MaxElapsedTime > 0 {
		eb.MaxElapsedTime = cfg.MaxElapsedTime
	}

	var bo backoff.BackOff = eb
	if cfg.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, cfg.MaxRetries)
	}
	if ctx != nil {
		bo = backoff.WithContext(bo, ctx)
	}

	return backoff.RetryNotify(backoff.Operation(fn), bo, func(err error, next time.Duration) {
		if cfg.OnRetry != nil {
			cfg.OnRetry(err, next)
		}
	})
}

// Permanent marks err as non-retryable for Exponential.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func Constant(fn Operation, interval time.Duration, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
