package cron

import (
	"fmt"
	"strings"
	"time"
)

// State is the position of a job in its run cycle:
//
//	Idle -> Running -> {Succeeded, Retrying -> Running, FailedTerminal} -> Idle
type State int

const (
	StateIdle State = iota
	StateRunning
	StateRetrying
	StateSucceeded
	StateFailedTerminal
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateRunning:        "running",
	StateRetrying:       "retrying",
	StateSucceeded:      "succeeded",
	StateFailedTerminal: "failed_terminal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OverlapPolicy decides what happens when a tick fires while a previous run
// of the same job has not finished yet.
type OverlapPolicy int

const (
	// OverlapAllow starts the new run alongside the old one.
	OverlapAllow OverlapPolicy = iota
	// OverlapSkip drops the tick and records a skipped run.
	OverlapSkip
)

func (p OverlapPolicy) String() string {
	if p == OverlapSkip {
		return "skip"
	}
	return "allow"
}

func (p OverlapPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParseOverlapPolicy accepts "allow" or "skip" (case-insensitive).
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return OverlapAllow, nil
	case "skip":
		return OverlapSkip, nil
	default:
		return OverlapAllow, fmt.Errorf("%w: %q", ErrUnknownOverlap, s)
	}
}

// Trigger tells what started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Outcome is the final result of a run.
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// RunRecord describes one tick of a job.
type RunRecord struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Trigger    Trigger   `json:"trigger"`
	Outcome    Outcome   `json:"outcome"`
	Attempts   int       `json:"attempts"`
	Err        error     `json:"-"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration is zero until the run has finished.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Snapshot is a point-in-time view of a registered job.
type Snapshot struct {
	Name       string        `json:"name"`
	Schedule   string        `json:"schedule"`
	Overlap    OverlapPolicy `json:"overlap"`
	Policy     PolicyView    `json:"policy"`
	Scheduled  bool          `json:"scheduled"`
	ActiveRuns int           `json:"active_runs"`
	State      State         `json:"state"`
	NextRun    *time.Time    `json:"next_run,omitempty"`
	LastRun    *RunRecord    `json:"last_run,omitempty"`
}

type PolicyView struct {
	MaxAttempts  int   `json:"max_attempts"`
	DelaySeconds int64 `json:"delay_seconds"`
}
