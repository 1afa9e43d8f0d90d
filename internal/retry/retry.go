// Package retry implements bounded retries with a configurable backoff
// schedule around fallible operations.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/idgate/internal/telemetry"
)

// Operation is a single attempt. It receives the attempt number, starting at 1.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, the context is
// cancelled or the policy's attempts are exhausted. The last error is returned.
// The delay before retry n is policy.Backoff(n). There is no wall-clock cap.
func Do[T any](ctx context.Context, policy Policy, op Operation[T]) (T, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	schedule := &schedule{fn: policy.Backoff}
	if schedule.fn == nil {
		schedule.fn = Exponential(2, time.Second)
	}

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op(ctx, attempt)
	},
		backoff.WithBackOff(schedule),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			telemetry.RetriesTotal.WithLabelValues(policy.Name).Inc()
			log.Ctx(ctx).Warn().
				Err(err).
				Str("policy", policy.Name).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msgf("attempt %d failed, retrying in %s", attempt, delay)
		}),
	)
}
