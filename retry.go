package renderpool

import (
	"context"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
)

const (
	defaultAttempts     = 3
	defaultInitialRetry = 200 * time.Millisecond
	defaultMaxRetry     = 5 * time.Second
)

// RetryPolicy describes how many times and how often a job should be
// retried. Zero values are treated as "use defaults".
//
// Retries are a property of the job function, not of the runner: the
// runner sees one execution span per dispatch and stays retry-agnostic.
// Wrap the run function with WithRetry to opt in.
type RetryPolicy struct {
	// Attempts is the maximum number of tries.
	Attempts int

	// Initial is the first backoff duration.
	Initial time.Duration

	// Max is the cap for backoff duration.
	Max time.Duration
}

// GetDefaultRP returns a pointer to the default retry policy.
// Useful in tests or for constructing adjusted policies.
func GetDefaultRP() *RetryPolicy {
	rp := RetryPolicy{
		Attempts: defaultAttempts,
		Initial:  defaultInitialRetry,
		Max:      defaultMaxRetry,
	}
	return &rp
}

// WithRetry wraps fn so that failures are retried up to pol.Attempts
// times with growing backoff. The last error is returned verbatim.
// Backoff waits respect ctx, so a pool timeout or caller cancellation
// ends the loop early.
func WithRetry(fn RunFunc, pol RetryPolicy) RunFunc {
	if pol.Attempts <= 0 {
		pol.Attempts = defaultAttempts
	}
	if pol.Initial <= 0 {
		pol.Initial = defaultInitialRetry
	}
	if pol.Max <= 0 {
		pol.Max = defaultMaxRetry
	}

	return func(ctx context.Context, w *Worker) (Result, error) {
		bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())

		var res Result
		var err error
		for attempt := 1; attempt <= pol.Attempts; attempt++ {
			res, err = fn(ctx, w)
			if err == nil || attempt == pol.Attempts {
				return res, err
			}

			delay := bo.Next()
			lg.FromContext(ctx).Warn("job attempt failed; backing off",
				lg.Int("attempt", attempt),
				lg.String("sleep", delay.String()),
				lg.Any("error", err),
			)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C // drain if timer is fired
				}
				return nil, ctx.Err()
			}
		}
		return res, err
	}
}
