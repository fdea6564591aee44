package mockservice

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

var errRetry = errors.New("retry")

// retryFor calls do every delay until it returns true or duration elapsed.
// It reports whether do succeeded.
func retryFor(ctx context.Context, do func(timeLeft time.Duration) bool, delay, duration time.Duration) bool {
	if delay <= 0 {
		delay = time.Millisecond
	}
	start := time.Now()
	attempts := uint(duration/delay) + 2
	err := retry.Do(func() error {
		if !do(duration - time.Since(start)) {
			return errRetry
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return err != nil && time.Since(start) <= duration
		}),
	)
	return err == nil
}
