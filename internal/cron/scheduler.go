package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunObserver is notified around every tick of every job.
// Skipped ticks produce a RunStarted/RunFinished pair with OutcomeSkipped.
type RunObserver interface {
	RunStarted(ctx context.Context, rec RunRecord)
	RunFinished(ctx context.Context, rec RunRecord)
}

// JobSpec declares a job at registration time. The schedule cannot change afterwards.
type JobSpec struct {
	Name     string
	Schedule string
	Run      Operation
	Policy   Policy
	Overlap  OverlapPolicy
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone schedules are evaluated in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSink sets where attempt and outcome events go.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithObservers appends run observers.
func WithObservers(obs ...RunObserver) Option {
	return func(s *Scheduler) {
		for _, o := range obs {
			if o != nil {
				s.observers = append(s.observers, o)
			}
		}
	}
}

// Scheduler owns the registry of jobs and drives one timer per started job.
// It is built once at process start and passed to whoever needs to start,
// stop or inspect jobs.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool

	loc       *time.Location
	sink      Sink
	retrier   *Retrier
	observers []RunObserver
	tracer    trace.Tracer

	next func(expr string, from time.Time) (time.Time, error)
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		jobs:   make(map[string]*Job),
		loc:    time.UTC,
		sink:   nopSink{},
		tracer: otel.Tracer("explainx/internal/cron"),
		next:   nextTick,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retrier = NewRetrier(s.sink)
	return s
}

// ValidateSchedule accepts standard 5-field expressions and 6-field
// expressions with a leading seconds field.
func ValidateSchedule(expr string) error {
	n := len(strings.Fields(expr))
	if n != 5 && n != 6 {
		return fmt.Errorf("%w: %q has %d fields, expected 5 or 6", ErrInvalidSchedule, expr, n)
	}
	if !gronx.IsValid(expr) {
		return fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
	}
	return nil
}

func nextTick(expr string, from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, from, false)
}

// Register adds a job to the registry without starting its timer.
func (s *Scheduler) Register(spec JobSpec) (*Job, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidJob)
	}
	if spec.Run == nil {
		return nil, fmt.Errorf("%w: %s has no operation", ErrInvalidJob, spec.Name)
	}
	if err := ValidateSchedule(spec.Schedule); err != nil {
		return nil, err
	}
	spec.Policy = spec.Policy.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSchedulerClosed
	}
	if _, ok := s.jobs[spec.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrJobExists, spec.Name)
	}
	j := &Job{spec: spec, s: s}
	s.jobs[spec.Name] = j
	return j, nil
}

// Job returns the handle registered under name.
func (s *Scheduler) Job(name string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	return j, ok
}

func (s *Scheduler) lookup(name string) (*Job, error) {
	j, ok := s.Job(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return j, nil
}

func (s *Scheduler) all() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].spec.Name < out[b].spec.Name })
	return out
}

// Jobs returns a snapshot of every registered job, sorted by name.
func (s *Scheduler) Jobs() []Snapshot {
	jobs := s.all()
	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Describe returns the snapshot of the named job.
func (s *Scheduler) Describe(name string) (Snapshot, error) {
	j, err := s.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	return j.Snapshot(), nil
}

// Start starts the timer of the named job. Starting a running job is a no-op.
func (s *Scheduler) Start(name string) error {
	j, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSchedulerClosed
	}
	j.start()
	return nil
}

// Stop stops the timer of the named job. A run already in flight is not interrupted.
func (s *Scheduler) Stop(name string) error {
	j, err := s.lookup(name)
	if err != nil {
		return err
	}
	j.halt()
	return nil
}

// StartAll starts every registered job that is not already started.
func (s *Scheduler) StartAll() {
	jobs := s.all()
	for _, j := range jobs {
		if !j.Scheduled() {
			j.start()
		}
	}
	s.sink.Info(s.ctx, "scheduler", "All cron jobs started", map[string]any{"jobs": len(jobs)})
}

// StopAll stops every started job.
func (s *Scheduler) StopAll() {
	jobs := s.all()
	for _, j := range jobs {
		j.halt()
	}
	s.sink.Info(s.ctx, "scheduler", "All cron jobs stopped", map[string]any{"jobs": len(jobs)})
}

// Trigger fires a manual tick of the named job in the background.
func (s *Scheduler) Trigger(name string) error {
	j, err := s.lookup(name)
	if err != nil {
		return err
	}
	if !s.fire(j, TriggerManual) {
		return ErrSchedulerClosed
	}
	return nil
}

// RunNow runs one tick of the named job in the caller's goroutine and
// returns its record. The error is the run's terminal error, if any.
func (s *Scheduler) RunNow(ctx context.Context, name string) (RunRecord, error) {
	j, err := s.lookup(name)
	if err != nil {
		return RunRecord{}, err
	}
	rec := s.run(ctx, j, TriggerManual)
	return rec, rec.Err
}

// Shutdown stops every timer, cancels pending retry delays and waits for
// in-flight runs until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for _, j := range s.all() {
		j.halt()
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire starts a tick in its own goroutine so it never blocks a timer.
func (s *Scheduler) fire(j *Job, trig Trigger) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.runs.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.runs.Done()
		s.run(s.ctx, j, trig)
	}()
	return true
}

// run is the tick handler. Errors from the operation end here.
func (s *Scheduler) run(ctx context.Context, j *Job, trig Trigger) RunRecord {
	name := j.spec.Name
	rec := RunRecord{
		ID:        uuid.NewString(),
		Job:       name,
		Trigger:   trig,
		Outcome:   OutcomeRunning,
		StartedAt: s.now(),
	}

	active, ok := j.begin()
	if !ok {
		rec.Outcome = OutcomeSkipped
		rec.FinishedAt = rec.StartedAt
		s.sink.Info(ctx, name, "Previous run still in progress, skipping tick", map[string]any{
			"activeRuns": active,
			"runId":      rec.ID,
		})
		s.started(ctx, rec)
		s.finished(ctx, rec)
		return rec
	}

	ctx, span := s.tracer.Start(ctx, "cron.run", trace.WithAttributes(
		attribute.String("cron.job", name),
		attribute.String("cron.trigger", string(trig)),
		attribute.String("cron.run_id", rec.ID),
	))
	defer span.End()

	s.sink.Info(ctx, name, fmt.Sprintf("Starting scheduled %s job", name), map[string]any{
		"trigger": string(trig),
		"runId":   rec.ID,
	})
	s.started(ctx, rec)

	attempts, err := s.retrier.Do(ctx, name, j.spec.Policy, j.spec.Run, j.setState)
	rec.Attempts = attempts
	rec.FinishedAt = s.now()
	span.SetAttributes(attribute.Int("cron.attempts", attempts))

	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.Err = err
		rec.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "max retries reached")
		s.sink.Error(ctx, name, fmt.Sprintf("%s job failed after all retries", name), map[string]any{
			"attempts":   attempts,
			"runId":      rec.ID,
			"durationMs": rec.Duration().Milliseconds(),
			"error":      rec.Error,
		})
	} else {
		rec.Outcome = OutcomeSucceeded
		s.sink.Info(ctx, name, fmt.Sprintf("%s job completed successfully", name), map[string]any{
			"attempts":   attempts,
			"runId":      rec.ID,
			"durationMs": rec.Duration().Milliseconds(),
		})
	}

	j.end(rec)
	s.finished(ctx, rec)
	return rec
}

func (s *Scheduler) started(ctx context.Context, rec RunRecord) {
	for _, o := range s.observers {
		o.RunStarted(ctx, rec)
	}
}

func (s *Scheduler) finished(ctx context.Context, rec RunRecord) {
	for _, o := range s.observers {
		o.RunFinished(ctx, rec)
	}
}
