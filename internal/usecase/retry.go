package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

// RetryPolicy is the backoff schedule for rate-limited remote calls. The wait
// before retry i (0-indexed) is Base*2^i plus a uniform jitter in [0, Jitter).
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Jitter      time.Duration
}

// DefaultRetryPolicy waits 5s, 10s, 20s, 40s (plus jitter) across five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Base: 5 * time.Second, Jitter: 2 * time.Second}
}

// Executor runs remote calls with exponential backoff on rate-limit failures.
type Executor struct {
	policy  RetryPolicy
	sleep   Sleeper
	jitter  func(max time.Duration) time.Duration
	log     *applogger.Logger
	metrics drepo.Metrics
}

// ExecutorOption configures Executor.
type ExecutorOption func(*Executor)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) ExecutorOption {
	return func(r *Executor) { r.sleep = s }
}

// WithJitter replaces the jitter source.
func WithJitter(j func(max time.Duration) time.Duration) ExecutorOption {
	return func(r *Executor) { r.jitter = j }
}

// NewExecutor creates an Executor.
func NewExecutor(policy RetryPolicy, l *applogger.Logger, m drepo.Metrics, opts ...ExecutorOption) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	r := &Executor{
		policy:  policy,
		sleep:   SleepContext,
		jitter:  randomJitter,
		log:     l,
		metrics: m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// Delay returns the wait before retrying after the given failed attempt.
func (r *Executor) Delay(attempt int) time.Duration {
	return r.policy.Base*time.Duration(1<<uint(attempt)) + r.jitter(r.policy.Jitter)
}

// Do calls fn until it succeeds, fails with a non rate-limit error, or the
// attempts run out. Exhaustion returns models.ErrQuotaExceeded without a
// final extra attempt.
func Do[T any](ctx context.Context, r *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRateLimit(err) {
			return zero, err
		}
		if attempt >= r.policy.MaxAttempts-1 {
			r.log.Warn("retry budget exhausted",
				applogger.String("op", op),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err),
			)
			return zero, models.ErrQuotaExceeded
		}

		delay := r.Delay(attempt)
		r.metrics.RecordRetry(op)
		r.log.Warn("rate limited, backing off",
			applogger.String("op", op),
			applogger.Int("attempt", attempt+1),
			applogger.Int("max_attempts", r.policy.MaxAttempts),
			applogger.Duration("delay_ms", delay),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

var rateLimitMarkers = []string{"429", "quota", "rate_limit", "rate limit", "resource_exhausted"}

// IsRateLimit reports whether err is a rate-limit class failure: an HTTP 429,
// exhausted retries, or an error whose text names a quota or rate limit.
// A cooldown short-circuit is not one; no remote call was made.
func IsRateLimit(err error) bool {
	if err == nil || errors.Is(err, models.ErrCooldownActive) {
		return false
	}
	if errors.Is(err, models.ErrQuotaExceeded) {
		return true
	}
	var re *models.RemoteError
	if errors.As(err, &re) && re.Status == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
