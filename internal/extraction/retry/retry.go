// Package retry implements exponential backoff with jitter for provider calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/joblens/extractor/internal/infra/llm/provider"
)

// Config defines retry behavior.
type Config struct {
	// MaxRetries is the number of additional attempts after the first
	// failure, so MaxRetries+1 invocations worst case
	MaxRetries int

	// BaseDelay is the delay before the first retry, doubled each attempt
	BaseDelay time.Duration
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  100 * time.Millisecond,
}

// Func is the operation being retried.
type Func func(ctx context.Context) (any, error)

// Do executes fn with exponential backoff. A failure is retried only while
// retryable reports true and attempts remain; non-retryable failures return
// immediately. The sleep between attempts honors ctx cancellation.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn Func) (any, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := retryDelay(attempt, cfg, err)
		slog.Warn("retrying after transient error",
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// retryDelay picks the sleep before the next attempt. A server-provided
// Retry-After duration takes precedence over computed backoff.
func retryDelay(attempt int, cfg Config, err error) time.Duration {
	var perr *provider.Error
	if errors.As(err, &perr) && perr.RetryAfter > 0 {
		return perr.RetryAfter
	}
	return Backoff(attempt, cfg.BaseDelay)
}

// Backoff computes baseDelay * 2^attempt plus uniform jitter in
// [0, max(1ms, backoff/10)]. The jitter bound keeps concurrent callers
// retrying the same provider from synchronizing.
func Backoff(attempt int, baseDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		baseDelay = DefaultConfig.BaseDelay
	}
	backoff := baseDelay << uint(attempt)

	jitterMax := backoff / 10
	if jitterMax < time.Millisecond {
		jitterMax = time.Millisecond
	}
	return backoff + time.Duration(rand.Int64N(int64(jitterMax)+1))
}
