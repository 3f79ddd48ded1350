// Package ratelimit paces calls to the MaIS Person API and backs off when the
// API answers 429 Too Many Requests.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited marks an error as a rate-limit rejection. Errors that match
// it with errors.Is are retried with backoff.
var ErrRateLimited = errors.New("rate limited")

// RetryAfterer is implemented by errors that carry the server's requested
// wait, typically parsed from a Retry-After header.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// RateLimiter spaces requests and applies exponential backoff on rate-limit
// errors. It is safe for concurrent use. The request pace is shared by every
// caller, while each ExecuteWithRetry call keeps its own attempt budget.
type RateLimiter struct {
	limiter      *rate.Limiter
	mu           sync.Mutex
	currentDelay time.Duration
	config       *Config
	logger       *slog.Logger
}

// Config holds rate limiter configuration
type Config struct {
	APIDelay          time.Duration `yaml:"api_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	MaxAttempts       int           `yaml:"max_attempts"`
}

// DefaultConfig returns default rate limiter configuration
func DefaultConfig() *Config {
	return &Config{
		APIDelay:          100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		MaxAttempts:       4,
	}
}

// NewRateLimiter creates a new rate limiter. Zero fields in cfg fall back to
// DefaultConfig values.
func NewRateLimiter(cfg *Config) *RateLimiter {
	cfg = withDefaults(cfg)

	return &RateLimiter{
		limiter:      rate.NewLimiter(limitFor(cfg.APIDelay), 1),
		currentDelay: cfg.APIDelay,
		config:       cfg,
		logger:       slog.Default(),
	}
}

// WithLogger sets the logger used for backoff messages.
func (r *RateLimiter) WithLogger(logger *slog.Logger) *RateLimiter {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func withDefaults(cfg *Config) *Config {
	def := DefaultConfig()
	if cfg == nil {
		return def
	}
	merged := *cfg
	if merged.APIDelay <= 0 {
		merged.APIDelay = def.APIDelay
	}
	if merged.BackoffMultiplier < 1 {
		merged.BackoffMultiplier = def.BackoffMultiplier
	}
	if merged.MaxDelay <= 0 {
		merged.MaxDelay = def.MaxDelay
	}
	if merged.MaxAttempts <= 0 {
		merged.MaxAttempts = def.MaxAttempts
	}
	return &merged
}

func limitFor(delay time.Duration) rate.Limit {
	return rate.Limit(float64(time.Second) / float64(delay))
}

// Wait blocks until the rate limiter allows the request
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// IsRateLimit reports whether err is a rate-limit rejection.
func IsRateLimit(err error) bool {
	return err != nil && errors.Is(err, ErrRateLimited)
}

// HandleError processes the attempt-th rate-limit error seen by one call and
// returns whether that call may retry and how long it should wait. The wait
// also slows the shared pace.
func (r *RateLimiter) HandleError(err error, attempt int) (shouldRetry bool, waitTime time.Duration) {
	if !IsRateLimit(err) {
		return false, 0
	}
	attempt = max(attempt, 1)

	waitTime = time.Duration(math.Min(
		float64(r.config.APIDelay)*math.Pow(r.config.BackoffMultiplier, float64(attempt-1)),
		float64(r.config.MaxDelay),
	))

	var ra RetryAfterer
	if errors.As(err, &ra) {
		if requested := ra.RetryAfter(); requested > waitTime {
			waitTime = min(requested, r.config.MaxDelay)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Slow the steady-state pace down too.
	if waitTime > r.currentDelay {
		r.currentDelay = waitTime
		r.limiter.SetLimit(limitFor(waitTime))
	}

	return attempt < r.config.MaxAttempts, waitTime
}

// Success restores the configured pace.
func (r *RateLimiter) Success() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentDelay != r.config.APIDelay {
		r.currentDelay = r.config.APIDelay
		r.limiter.SetLimit(limitFor(r.config.APIDelay))
	}
}

// ExecuteWithRetry runs fn under the limiter, retrying rate-limit errors up to
// MaxAttempts calls of fn. Any other error is returned unchanged. When
// attempts run out the last error is wrapped, so errors.Is still matches it.
func (r *RateLimiter) ExecuteWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := r.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		err := fn()
		if err == nil {
			r.Success()
			return nil
		}
		lastErr = err

		shouldRetry, waitTime := r.HandleError(err, attempt)
		if !shouldRetry {
			if IsRateLimit(err) {
				break
			}
			return err
		}

		r.logger.Warn("Rate limited by MaIS, backing off",
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"wait", waitTime)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, lastErr)
}
