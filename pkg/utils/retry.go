package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	// ShouldRetry decides whether an error is worth another attempt.
	ShouldRetry func(error) bool
}

type RetryFunc func(ctx context.Context, attempt int) error

// WithRetry runs fn until it succeeds, returns a non-retryable error, or
// runs out of attempts. The last error is returned.
func WithRetry(ctx context.Context, cfg RetryConfig, fn RetryFunc) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts || (cfg.ShouldRetry != nil && !cfg.ShouldRetry(lastErr)) {
			break
		}

		zap.L().Warn("operation failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastErr
			}
			if cfg.Multiplier > 1 {
				delay = time.Duration(float64(delay) * cfg.Multiplier)
			}
		}
	}
	return lastErr
}
