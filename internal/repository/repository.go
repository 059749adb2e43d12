// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres) and contain no business logic.
package repository

import (
	"context"
	"time"

	"explainx/internal/model"
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}

// ReportFilter narrows report listings. Zero values match everything.
type ReportFilter struct {
	Status    model.ReportStatus
	ProfileID string
}

// ReportRepository persists upstream report requests.
type ReportRepository interface {
	// Create inserts a report and returns the stored row.
	Create(ctx context.Context, r *model.Report) (*model.Report, error)

	// ListRequested returns the (profile, report key, start date) of every report starting on or after since.
	ListRequested(ctx context.Context, since time.Time) ([]ReportRef, error)

	// ListRetryable returns FAILED reports with fewer than maxAttempts attempts
	// that were last touched before updatedBefore, oldest first.
	ListRetryable(ctx context.Context, maxAttempts int, updatedBefore time.Time, limit int) ([]model.Report, error)

	// MarkRequested moves a report back to PENDING with the new upstream id.
	MarkRequested(ctx context.Context, id, externalID string, at time.Time) error

	// MarkFailed increments attempts and records the failure message.
	MarkFailed(ctx context.Context, id, reason string, at time.Time) error

	// List returns a filtered page of reports, newest first.
	List(ctx context.Context, f ReportFilter, pq PageQuery) (*PageResult[model.Report], error)
}

// ReportRef identifies a requested report independently of its status.
type ReportRef struct {
	ProfileID string
	ReportKey string
	StartDate time.Time
}

// ProfileRepository reads connected advertising profiles.
type ProfileRepository interface {
	// ListActive returns connected ACTIVE profiles.
	ListActive(ctx context.Context) ([]model.Profile, error)
}

// AdAccountRepository reads and refreshes reporting API credentials.
type AdAccountRepository interface {
	// FindActive returns the first active account.
	FindActive(ctx context.Context) (*model.AdAccount, error)

	// UpdateTokens stores a refreshed token pair.
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
}

// JobRunRepository stores the history of cron job runs.
type JobRunRepository interface {
	// Create inserts a run, typically in RUNNING status.
	Create(ctx context.Context, run *model.JobRun) error

	// Finish records the final status of a run.
	Finish(ctx context.Context, id, status string, attempts int, errMsg string, finishedAt time.Time) error

	// ListByJob returns a page of runs of one job, newest first.
	ListByJob(ctx context.Context, jobName string, pq PageQuery) (*PageResult[model.JobRun], error)
}
