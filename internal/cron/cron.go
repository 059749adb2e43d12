// Package cron runs named jobs on cron schedules. Every run goes through a
// Retrier that retries a failed operation a bounded number of times with a
// fixed delay between attempts, and every attempt is reported to a Sink.
package cron

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobNotFound     = errors.New("cron job not found")
	ErrJobExists       = errors.New("cron job already registered")
	ErrInvalidJob      = errors.New("invalid cron job")
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	ErrSchedulerClosed = errors.New("scheduler is shut down")
	ErrPanic           = errors.New("job panicked")
	ErrUnknownOverlap  = errors.New("unknown overlap policy")
)

// Operation is a unit of scheduled work. All state it needs lives in its closure.
type Operation func(ctx context.Context) error

// Sink receives attempt and outcome events for a job.
type Sink interface {
	Info(ctx context.Context, job, msg string, fields map[string]any)
	Error(ctx context.Context, job, msg string, fields map[string]any)
}

type nopSink struct{}

func (nopSink) Info(context.Context, string, string, map[string]any)  {}
func (nopSink) Error(context.Context, string, string, map[string]any) {}

// Policy bounds the retries of a single run.
type Policy struct {
	// MaxAttempts is the total number of invocations allowed per run, including the first.
	MaxAttempts int
	// Delay is the fixed wait between a failed attempt and the next one.
	Delay time.Duration
}

// DefaultPolicy is three attempts, five minutes apart.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: 5 * time.Minute}

func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}
