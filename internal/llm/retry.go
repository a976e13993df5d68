package llm

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// RetryConfig controls backoff for rate-limited or transient failures.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// RetryingGenerator wraps a Generator with capped exponential backoff.
// Only transient failures are retried; auth and request errors fail fast.
type RetryingGenerator struct {
	inner Generator
	cfg   RetryConfig
}

// NewRetryingGenerator wraps gen with retry behavior.
func NewRetryingGenerator(gen Generator, cfg RetryConfig) *RetryingGenerator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &RetryingGenerator{inner: gen, cfg: cfg}
}

// Generate calls the wrapped generator, retrying transient failures.
func (r *RetryingGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error

	delay := r.cfg.BaseDelay
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		text, err := r.inner.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return "", err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		log.Printf("[llm] attempt %d/%d failed, retrying in %v: %v",
			attempt, r.cfg.MaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}

	return "", lastErr
}

// IsRetryable reports whether the error is a transient API failure worth
// retrying: rate limits, overloaded responses, and server errors.
// Context cancellation and auth failures are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusServiceUnavailable, 529:
			return true
		default:
			return false
		}
	}

	// Transport-level failures without an API status are treated as
	// transient (connection resets, timeouts below the context deadline).
	return true
}
