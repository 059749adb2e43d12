package cron

import (
	"sync"
	"time"
)

// Job is the handle of a registered job: a timer that can be started and stopped.
type Job struct {
	spec JobSpec
	s    *Scheduler

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	next   time.Time
	active int
	state  State
	last   *RunRecord
}

func (j *Job) Name() string     { return j.spec.Name }
func (j *Job) Schedule() string { return j.spec.Schedule }

// Scheduled reports whether the job's timer is running.
func (j *Job) Scheduled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stop != nil
}

// Snapshot returns the job's current view.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := Snapshot{
		Name:     j.spec.Name,
		Schedule: j.spec.Schedule,
		Overlap:  j.spec.Overlap,
		Policy: PolicyView{
			MaxAttempts:  j.spec.Policy.MaxAttempts,
			DelaySeconds: int64(j.spec.Policy.Delay / time.Second),
		},
		Scheduled:  j.stop != nil,
		ActiveRuns: j.active,
		State:      j.state,
	}
	if !j.next.IsZero() {
		next := j.next
		snap.NextRun = &next
	}
	if j.last != nil {
		last := *j.last
		snap.LastRun = &last
	}
	return snap
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stop != nil {
		return
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	go j.loop(j.stop, j.done)
}

// halt stops the timer goroutine and waits for it to exit.
func (j *Job) halt() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.next = time.Time{}
	j.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (j *Job) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	s := j.s
	for {
		now := s.now().In(s.loc)
		next, err := s.next(j.spec.Schedule, now)
		if err != nil {
			s.sink.Error(s.ctx, j.spec.Name, "Failed to compute next run, timer stopped", map[string]any{
				"schedule": j.spec.Schedule,
				"error":    err.Error(),
			})
			return
		}

		j.mu.Lock()
		j.next = next
		j.mu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(j, TriggerSchedule)
		}
	}
}

// begin registers a new run. It refuses when the job skips overlapping
// ticks and a run is already active.
func (j *Job) begin() (int, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.spec.Overlap == OverlapSkip && j.active > 0 {
		return j.active, false
	}
	j.active++
	j.state = StateRunning
	return j.active, true
}

func (j *Job) setState(st State) {
	j.mu.Lock()
	j.state = st
	j.mu.Unlock()
}

func (j *Job) end(rec RunRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.active--
	j.last = &rec
	if j.active == 0 {
		j.state = StateIdle
	}
}
