package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces consecutive batch members.
type Throttle interface {
	Wait(ctx context.Context) error
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}

// FixedDelay waits an unconditional, fixed duration.
type FixedDelay struct {
	Delay   time.Duration
	Sleeper Sleeper
}

func (f FixedDelay) Wait(ctx context.Context) error {
	sleeper := f.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	return sleeper.Sleep(ctx, f.Delay)
}

// Admitter is implemented by throttles that also meter the first member of a
// batch. RunBatch calls Admit before the first job and Wait before every other.
type Admitter interface {
	Admit(ctx context.Context) error
}

// TokenBucket paces batch members with a token bucket. Every job start takes
// one token, so one TokenBucket may be shared by every batch talking to the
// same provider.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows one job start per every, with the given burst.
func NewTokenBucket(every time.Duration, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

// Admit takes the token for the first job of a batch.
func (t *TokenBucket) Admit(ctx context.Context) error {
	return t.Wait(ctx)
}

// Wait blocks until a token is available. When the next token lies beyond the
// ctx deadline it fails at once with an error wrapping
// context.DeadlineExceeded.
func (t *TokenBucket) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("jobs: token bucket: %w: %v", context.DeadlineExceeded, err)
	}
	return nil
}

// Throttle modes accepted by NewThrottle.
const (
	ThrottleFixed = "fixed"
	ThrottleToken = "token_bucket"
	ThrottleNone  = "none"
)

// NewThrottle builds a throttle from configuration values. Unknown modes fall
// back to a fixed delay.
func NewThrottle(mode string, delay time.Duration, burst int) Throttle {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ThrottleNone:
		return NoDelay{}
	case ThrottleToken:
		return NewTokenBucket(delay, burst)
	default:
		return FixedDelay{Delay: delay}
	}
}
