package model

import "time"

// JobRun is the persisted history entry of one cron job tick.
type JobRun struct {
	ID         string     `json:"id"`
	JobName    string     `json:"job_name"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const (
	JobRunRunning   = "RUNNING"
	JobRunSucceeded = "SUCCEEDED"
	JobRunFailed    = "FAILED"
	JobRunSkipped   = "SKIPPED"
)
