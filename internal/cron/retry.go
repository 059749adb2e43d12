package cron

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Retrier invokes an Operation until it succeeds or the Policy runs out of attempts.
type Retrier struct {
	sink  Sink
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier returns a Retrier reporting to sink. A nil sink discards events.
func NewRetrier(sink Sink) *Retrier {
	if sink == nil {
		sink = nopSink{}
	}
	return &Retrier{sink: sink, sleep: sleepContext}
}

// Do runs op under policy p and returns the number of invocations made.
//
// Each failed attempt is logged with its attempt number. When attempts
// remain the retrier waits p.Delay and tries again; once they are exhausted
// it logs a terminal failure and returns the last error. observe, when not
// nil, is told about every state transition.
func (r *Retrier) Do(ctx context.Context, name string, p Policy, op Operation, observe func(State)) (int, error) {
	p = p.normalize()
	if observe == nil {
		observe = func(State) {}
	}

	for attempt := 1; ; attempt++ {
		observe(StateRunning)
		err := invoke(ctx, op)
		if err == nil {
			observe(StateSucceeded)
			return attempt, nil
		}

		r.sink.Error(ctx, name, fmt.Sprintf("Failed attempt %d of %d", attempt, p.MaxAttempts), map[string]any{
			"attempt":    attempt,
			"error":      err.Error(),
			"maxRetries": p.MaxAttempts,
		})

		if attempt >= p.MaxAttempts {
			r.sink.Error(ctx, name, "Max retries reached, giving up", map[string]any{
				"attempts": attempt,
				"error":    err.Error(),
			})
			observe(StateFailedTerminal)
			return attempt, err
		}

		r.sink.Info(ctx, name, fmt.Sprintf("Retrying in %s seconds...", seconds(p.Delay)), map[string]any{
			"nextRetryIn": p.Delay.Milliseconds(),
		})
		observe(StateRetrying)

		if serr := r.sleep(ctx, p.Delay); serr != nil {
			r.sink.Error(ctx, name, "Retry aborted", map[string]any{
				"attempts": attempt,
				"error":    serr.Error(),
			})
			observe(StateFailedTerminal)
			return attempt, fmt.Errorf("retry aborted after %d attempts: %w", attempt, errors.Join(err, serr))
		}
	}
}

func invoke(ctx context.Context, op Operation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return op(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
