package cron

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	level  string
	job    string
	msg    string
	fields map[string]any
}

type recordingSink struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingSink) Info(_ context.Context, job, msg string, fields map[string]any) {
	r.add("info", job, msg, fields)
}

func (r *recordingSink) Error(_ context.Context, job, msg string, fields map[string]any) {
	r.add("error", job, msg, fields)
}

func (r *recordingSink) add(level, job, msg string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{level: level, job: job, msg: msg, fields: fields})
}

func (r *recordingSink) count(level, substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.level == level && strings.Contains(e.msg, substr) {
			n++
		}
	}
	return n
}

func (r *recordingSink) find(substr string) (event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if strings.Contains(e.msg, substr) {
			return e, true
		}
	}
	return event{}, false
}

// failing returns an operation that fails the first n calls and counts every call.
func failing(n int, calls *int) Operation {
	return func(context.Context) error {
		*calls++
		if *calls <= n {
			return errors.New("x")
		}
		return nil
	}
}

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		policy       Policy
		wantCalls    int
		wantErr      bool
		wantFailLogs int
		wantFinal    State
	}{
		{
			name:      "succeeds on first attempt",
			failures:  0,
			policy:    Policy{MaxAttempts: 3},
			wantCalls: 1,
			wantFinal: StateSucceeded,
		},
		{
			name:         "fails twice then succeeds",
			failures:     2,
			policy:       Policy{MaxAttempts: 3},
			wantCalls:    3,
			wantFailLogs: 2,
			wantFinal:    StateSucceeded,
		},
		{
			name:         "always fails",
			failures:     100,
			policy:       Policy{MaxAttempts: 3},
			wantCalls:    3,
			wantErr:      true,
			wantFailLogs: 3,
			wantFinal:    StateFailedTerminal,
		},
		{
			name:         "zero attempts still runs once",
			failures:     100,
			policy:       Policy{MaxAttempts: 0},
			wantCalls:    1,
			wantErr:      true,
			wantFailLogs: 1,
			wantFinal:    StateFailedTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			r := NewRetrier(sink)

			var calls int
			var states []State
			attempts, err := r.Do(context.Background(), "job", tt.policy, failing(tt.failures, &calls), func(st State) {
				states = append(states, st)
			})

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCalls, attempts)
			if tt.wantErr {
				assert.EqualError(t, err, "x")
				assert.Equal(t, 1, sink.count("error", "Max retries reached"))
			} else {
				assert.NoError(t, err)
				assert.Zero(t, sink.count("error", "Max retries reached"))
			}
			assert.Equal(t, tt.wantFailLogs, sink.count("error", "Failed attempt"))
			require.NotEmpty(t, states)
			assert.Equal(t, StateRunning, states[0])
			assert.Equal(t, tt.wantFinal, states[len(states)-1])
		})
	}
}

func TestRetrier_Do_LogsAttemptContext(t *testing.T) {
	sink := &recordingSink{}
	r := NewRetrier(sink)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	var calls int
	_, err := r.Do(context.Background(), "daily-reports-fetch", Policy{MaxAttempts: 3, Delay: 5 * time.Minute}, failing(100, &calls), nil)
	require.Error(t, err)

	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute}, slept)

	e, ok := sink.find("Failed attempt 2 of 3")
	require.True(t, ok)
	assert.Equal(t, "daily-reports-fetch", e.job)
	assert.Equal(t, 2, e.fields["attempt"])
	assert.Equal(t, 3, e.fields["maxRetries"])
	assert.Equal(t, "x", e.fields["error"])

	e, ok = sink.find("Retrying in 300 seconds...")
	require.True(t, ok)
	assert.Equal(t, "info", e.level)
	assert.Equal(t, int64(300000), e.fields["nextRetryIn"])
	assert.Equal(t, 2, sink.count("info", "Retrying in"))
}

func TestRetrier_Do_WaitsBetweenAttempts(t *testing.T) {
	const delay = 20 * time.Millisecond
	r := NewRetrier(nil)

	var stamps []time.Time
	op := func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("x")
	}

	attempts, err := r.Do(context.Background(), "job", Policy{MaxAttempts: 3, Delay: delay}, op, nil)
	require.Error(t, err)
	require.Equal(t, 3, attempts)
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), delay)
	}
}

func TestRetrier_Do_RecoversPanic(t *testing.T) {
	sink := &recordingSink{}
	r := NewRetrier(sink)

	calls := 0
	op := func(context.Context) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	}

	attempts, err := r.Do(context.Background(), "job", Policy{MaxAttempts: 2}, op, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)

	e, ok := sink.find("Failed attempt 1 of 2")
	require.True(t, ok)
	assert.Contains(t, e.fields["error"], "boom")
}

func TestRetrier_Do_AbortsOnCancel(t *testing.T) {
	sink := &recordingSink{}
	r := NewRetrier(sink)
	ctx, cancel := context.WithCancel(context.Background())

	op := func(context.Context) error {
		cancel()
		return errors.New("x")
	}

	start := time.Now()
	attempts, err := r.Do(ctx, "job", Policy{MaxAttempts: 3, Delay: time.Hour}, op, nil)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sink.count("error", "Retry aborted"))
}

func TestParseOverlapPolicy(t *testing.T) {
	p, err := ParseOverlapPolicy("SKIP")
	assert.NoError(t, err)
	assert.Equal(t, OverlapSkip, p)

	p, err = ParseOverlapPolicy("allow")
	assert.NoError(t, err)
	assert.Equal(t, OverlapAllow, p)

	_, err = ParseOverlapPolicy("queue")
	assert.ErrorIs(t, err, ErrUnknownOverlap)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed_terminal", StateFailedTerminal.String())
	assert.Equal(t, "state(42)", State(42).String())
}
