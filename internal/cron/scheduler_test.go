package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []RunRecord
	finished []RunRecord
}

func (o *recordingObserver) RunStarted(_ context.Context, rec RunRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, rec)
}

func (o *recordingObserver) RunFinished(_ context.Context, rec RunRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, rec)
}

func (o *recordingObserver) outcomes() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Outcome, 0, len(o.finished))
	for _, r := range o.finished {
		out = append(out, r.Outcome)
	}
	return out
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *recordingSink, *recordingObserver) {
	t.Helper()
	sink := &recordingSink{}
	obs := &recordingObserver{}
	s := New(append([]Option{WithSink(sink), WithObservers(obs)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, s.Shutdown(ctx))
	})
	return s, sink, obs
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: "0 1 * * *"},
		{expr: "0 */4 * * *"},
		{expr: "*/5 * * * * *"},
		{expr: "", wantErr: true},
		{expr: "* * *", wantErr: true},
		{expr: "61 * * * *", wantErr: true},
		{expr: "every day", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateSchedule(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduler_Register(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	j, err := s.Register(JobSpec{Name: "daily-reports-fetch", Schedule: "0 1 * * *", Run: noop})
	require.NoError(t, err)
	assert.Equal(t, "daily-reports-fetch", j.Name())
	assert.False(t, j.Scheduled())

	_, err = s.Register(JobSpec{Name: "daily-reports-fetch", Schedule: "0 1 * * *", Run: noop})
	assert.ErrorIs(t, err, ErrJobExists)

	_, err = s.Register(JobSpec{Name: "", Schedule: "0 1 * * *", Run: noop})
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = s.Register(JobSpec{Name: "no-op", Schedule: "0 1 * * *"})
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = s.Register(JobSpec{Name: "bad", Schedule: "not a cron", Run: noop})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	snaps := s.Jobs()
	require.Len(t, snaps, 1)
	assert.Equal(t, StateIdle, snaps[0].State)
	assert.Equal(t, 1, snaps[0].Policy.MaxAttempts)
}

func TestScheduler_UnknownJob(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	assert.ErrorIs(t, s.Start("missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.Stop("missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.Trigger("missing"), ErrJobNotFound)
	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = s.Describe("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_Describe(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	_, err := s.Register(JobSpec{
		Name:     "retry-failed-reports",
		Schedule: "0 */4 * * *",
		Run:      func(context.Context) error { return nil },
		Policy:   Policy{MaxAttempts: 3, Delay: 5 * time.Minute},
		Overlap:  OverlapSkip,
	})
	require.NoError(t, err)

	snap, err := s.Describe("retry-failed-reports")
	require.NoError(t, err)
	assert.Equal(t, "0 */4 * * *", snap.Schedule)
	assert.Equal(t, OverlapSkip, snap.Overlap)
	assert.Equal(t, int64(300), snap.Policy.DelaySeconds)
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Scheduled)
	assert.Nil(t, snap.NextRun)
	assert.Nil(t, snap.LastRun)
}

func TestScheduler_TickSucceedsAfterRetries(t *testing.T) {
	s, sink, obs := newTestScheduler(t)

	var calls int32
	op := func(context.Context) error {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return errors.New("x")
		}
		return nil
	}
	_, err := s.Register(JobSpec{Name: "job", Schedule: "0 1 * * *", Run: op, Policy: Policy{MaxAttempts: 3}})
	require.NoError(t, err)

	require.NoError(t, s.Trigger("job"))

	assert.Eventually(t, func() bool {
		return len(obs.outcomes()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []Outcome{OutcomeSucceeded}, obs.outcomes())
	assert.Equal(t, 1, sink.count("info", "completed successfully"))
	assert.Equal(t, 2, sink.count("error", "Failed attempt"))
	assert.Zero(t, sink.count("error", "failed after all retries"))

	j, _ := s.Job("job")
	snap := j.Snapshot()
	require.NotNil(t, snap.LastRun)
	assert.Equal(t, 3, snap.LastRun.Attempts)
	assert.Equal(t, OutcomeSucceeded, snap.LastRun.Outcome)
	assert.Equal(t, TriggerManual, snap.LastRun.Trigger)
	assert.Equal(t, StateIdle, snap.State)
}

func TestScheduler_TerminalFailureIsSwallowed(t *testing.T) {
	s, sink, obs := newTestScheduler(t)

	var calls int32
	op := func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("x")
	}
	_, err := s.Register(JobSpec{Name: "job", Schedule: "0 1 * * *", Run: op, Policy: Policy{MaxAttempts: 3}})
	require.NoError(t, err)

	require.NoError(t, s.Trigger("job"))

	assert.Eventually(t, func() bool {
		return len(obs.outcomes()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []Outcome{OutcomeFailed}, obs.outcomes())
	assert.Equal(t, 3, sink.count("error", "Failed attempt"))
	assert.Equal(t, 1, sink.count("error", "Max retries reached"))
	assert.Zero(t, sink.count("info", "completed successfully"))
	failed, ok := sink.find("job job failed after all retries")
	require.True(t, ok)
	assert.Equal(t, "error", failed.level)
	assert.Equal(t, 3, failed.fields["attempts"])
	assert.Equal(t, "x", failed.fields["error"])

	obs.mu.Lock()
	rec := obs.finished[0]
	obs.mu.Unlock()
	assert.Equal(t, 3, rec.Attempts)
	assert.EqualError(t, rec.Err, "x")
	assert.Equal(t, "x", rec.Error)
}

func TestScheduler_RunNowReturnsTerminalError(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	_, err := s.Register(JobSpec{
		Name:     "job",
		Schedule: "0 1 * * *",
		Run:      func(context.Context) error { return errors.New("x") },
		Policy:   Policy{MaxAttempts: 2},
	})
	require.NoError(t, err)

	rec, err := s.RunNow(context.Background(), "job")
	assert.EqualError(t, err, "x")
	assert.Equal(t, OutcomeFailed, rec.Outcome)
	assert.Equal(t, 2, rec.Attempts)
	assert.False(t, rec.FinishedAt.IsZero())
}

// Overlapping ticks of an OverlapAllow job are not coordinated: both runs
// execute at the same time.
func TestScheduler_OverlapAllowRunsConcurrently(t *testing.T) {
	s, _, obs := newTestScheduler(t)

	release := make(chan struct{})
	var current, peak int32
	op := func(context.Context) error {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&current, -1)
		return nil
	}
	_, err := s.Register(JobSpec{Name: "job", Schedule: "0 1 * * *", Run: op, Overlap: OverlapAllow})
	require.NoError(t, err)

	require.NoError(t, s.Trigger("job"))
	require.NoError(t, s.Trigger("job"))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&current) == 2
	}, time.Second, 5*time.Millisecond)

	j, _ := s.Job("job")
	assert.Equal(t, 2, j.Snapshot().ActiveRuns)

	close(release)
	assert.Eventually(t, func() bool {
		return len(obs.outcomes()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
	assert.Equal(t, []Outcome{OutcomeSucceeded, OutcomeSucceeded}, obs.outcomes())
}

func TestScheduler_OverlapSkip(t *testing.T) {
	s, sink, obs := newTestScheduler(t)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var calls int32
	op := func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		entered <- struct{}{}
		<-release
		return nil
	}
	_, err := s.Register(JobSpec{Name: "job", Schedule: "0 1 * * *", Run: op, Overlap: OverlapSkip})
	require.NoError(t, err)

	require.NoError(t, s.Trigger("job"))
	<-entered
	require.NoError(t, s.Trigger("job"))

	assert.Eventually(t, func() bool {
		return len(obs.outcomes()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Outcome{OutcomeSkipped}, obs.outcomes())
	assert.Equal(t, 1, sink.count("info", "skipping tick"))

	close(release)
	assert.Eventually(t, func() bool {
		return len(obs.outcomes()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScheduler_TimerFiresUntilStopped(t *testing.T) {
	s, _, obs := newTestScheduler(t)
	s.next = func(_ string, from time.Time) (time.Time, error) {
		return from.Add(10 * time.Millisecond), nil
	}

	var calls int32
	_, err := s.Register(JobSpec{
		Name:     "job",
		Schedule: "* * * * *",
		Run: func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.Start("job"))
	require.NoError(t, s.Start("job"))

	j, _ := s.Job("job")
	assert.True(t, j.Scheduled())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.NotNil(t, j.Snapshot().NextRun)

	require.NoError(t, s.Stop("job"))
	assert.False(t, j.Scheduled())
	assert.Nil(t, j.Snapshot().NextRun)
	time.Sleep(20 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return j.Snapshot().ActiveRuns == 0
	}, time.Second, 5*time.Millisecond)

	stopped := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&calls))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	for _, rec := range obs.finished {
		assert.Equal(t, TriggerSchedule, rec.Trigger)
	}
}

func TestScheduler_StartAllStopAll(t *testing.T) {
	s, sink, _ := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	_, err := s.Register(JobSpec{Name: "b", Schedule: "0 */4 * * *", Run: noop})
	require.NoError(t, err)
	_, err = s.Register(JobSpec{Name: "a", Schedule: "0 1 * * *", Run: noop})
	require.NoError(t, err)

	s.StartAll()
	snaps := s.Jobs()
	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].Name)
	assert.Equal(t, "b", snaps[1].Name)
	for _, snap := range snaps {
		assert.True(t, snap.Scheduled)
	}
	assert.Equal(t, 1, sink.count("info", "All cron jobs started"))

	s.StopAll()
	for _, snap := range s.Jobs() {
		assert.False(t, snap.Scheduled)
	}
	assert.Equal(t, 1, sink.count("info", "All cron jobs stopped"))
}

func TestScheduler_NextRunUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	s, _, _ := newTestScheduler(t, WithLocation(loc))
	fixed := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var gotFrom time.Time
	release := make(chan struct{})
	s.next = func(expr string, from time.Time) (time.Time, error) {
		gotFrom = from
		defer close(release)
		return nextTick(expr, from)
	}

	_, err := s.Register(JobSpec{Name: "job", Schedule: "0 1 * * *", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
	require.NoError(t, s.Start("job"))
	<-release

	assert.Eventually(t, func() bool {
		j, _ := s.Job("job")
		return j.Snapshot().NextRun != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, loc, gotFrom.Location())

	j, _ := s.Job("job")
	next := *j.Snapshot().NextRun
	assert.True(t, next.Equal(time.Date(2026, 3, 2, 1, 0, 0, 0, loc)), "next run %s", next)
}

func TestScheduler_ShutdownCancelsRetryDelay(t *testing.T) {
	sink := &recordingSink{}
	s := New(WithSink(sink))

	entered := make(chan struct{}, 1)
	_, err := s.Register(JobSpec{
		Name:     "job",
		Schedule: "0 1 * * *",
		Run: func(context.Context) error {
			select {
			case entered <- struct{}{}:
			default:
			}
			return errors.New("x")
		},
		Policy: Policy{MaxAttempts: 3, Delay: time.Hour},
	})
	require.NoError(t, err)
	require.NoError(t, s.Trigger("job"))
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Equal(t, 1, sink.count("error", "Retry aborted"))
	assert.ErrorIs(t, s.Trigger("job"), ErrSchedulerClosed)
	assert.ErrorIs(t, s.Start("job"), ErrSchedulerClosed)
	_, err = s.Register(JobSpec{Name: "late", Schedule: "0 1 * * *", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}
