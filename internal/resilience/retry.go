package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
)

const (
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultJitterFactor = 0.2

	// Mail sends get a short budget; the next poll cycle tries again.
	MailMaxRetries = 2
	MailBaseDelay  = 1 * time.Second
	MailMaxDelay   = 10 * time.Second
)

// RetryConfig controls the backoff schedule.
type RetryConfig struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	IsRetryable  func(error) bool
}

// DefaultRetryConfig returns the general-purpose schedule.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  IsRetryableErr,
	}
}

// MailRetryConfig returns the schedule used for SMTP delivery.
func MailRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   MailMaxRetries,
		BaseDelay:    MailBaseDelay,
		MaxDelay:     MailMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  IsRetryableErr,
	}
}

// Retry runs fn until it succeeds, the error is terminal, or the budget
// is spent. The context cancels the waits between attempts.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()

	var err error
	for attempt := 0; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == cfg.MaxRetries || !cfg.IsRetryable(err) {
			return err
		}

		wait := backoffDelay(cfg, attempt)
		slog.Debug("attempt failed, backing off",
			"attempt", attempt+1, "of", cfg.MaxRetries+1, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// backoffDelay doubles the base delay per attempt up to MaxDelay, then
// spreads it across a JitterFactor-wide band. The shift is capped so
// the doubling cannot overflow.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.BaseDelay << min(attempt, 6)
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	jitter := cfg.JitterFactor * (rand.Float64() - 0.5)
	return d + time.Duration(float64(d)*jitter)
}

// IsRetryableErr reports whether err is worth another attempt. Errors
// without an AppError classification are treated as transient.
func IsRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return apperrors.IsRetryable(err)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = DefaultJitterFactor
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsRetryableErr
	}
	return c
}
