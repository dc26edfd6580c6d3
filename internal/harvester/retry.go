package harvester

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/JakeFAU/kraken/internal/kraken"
)

// RetryPolicy paces retries of transient fetch failures with jittered
// exponential backoff. A Retry-After hint from the server wins.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryPolicy builds a policy allowing maxAttempts tries in total.
func NewRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// ShouldRetry decides whether attempt (zero based) may be followed by another.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt+1 >= p.MaxAttempts {
		return false
	}
	return kraken.IsTransient(err)
}

// Backoff returns the wait before the attempt following attempt.
func (p RetryPolicy) Backoff(err error, attempt int) time.Duration {
	if d, ok := kraken.RetryAfter(err); ok && d > 0 {
		return d
	}
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay/2) + jitter(time.Duration(delay)/2)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// retry runs fn until it succeeds, fails permanently or exhausts the policy.
// onRetry observes every failure that will be retried.
func retry[T any](
	ctx context.Context,
	p RetryPolicy,
	sleeper kraken.Sleeper,
	onRetry func(err error, attempt int, wait time.Duration),
	fn func(context.Context) (T, error),
) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if !p.ShouldRetry(err, attempt) {
			return v, err
		}
		wait := p.Backoff(err, attempt)
		if onRetry != nil {
			onRetry(err, attempt, wait)
		}
		if serr := sleeper.Sleep(ctx, wait); serr != nil {
			var zero T
			return zero, serr
		}
	}
}
