package postgres

import (
	"context"
	"database/sql"
	"time"

	"explainx/internal/model"
	"explainx/internal/repository"
)

// JobRunPostgres is a PostgreSQL implementation of repository.JobRunRepository.
type JobRunPostgres struct {
	db *sql.DB
}

// NewJobRunPostgres creates a new JobRunPostgres repository.
func NewJobRunPostgres(db *sql.DB) *JobRunPostgres {
	return &JobRunPostgres{db: db}
}

var _ repository.JobRunRepository = (*JobRunPostgres)(nil)

// Create inserts a run row.
func (r *JobRunPostgres) Create(ctx context.Context, run *model.JobRun) error {
	const q = `
		INSERT INTO job_runs (id, job_name, trigger, status, attempts, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		run.ID,
		run.JobName,
		run.Trigger,
		run.Status,
		run.Attempts,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

// Finish records the outcome of a run.
func (r *JobRunPostgres) Finish(ctx context.Context, id, status string, attempts int, errMsg string, finishedAt time.Time) error {
	const q = `
		UPDATE job_runs
		SET status = $2, attempts = $3, error = NULLIF($4, ''), finished_at = $5
		WHERE id = $1
	`
	return execOne(ctx, r.db, q, id, status, attempts, errMsg, finishedAt)
}

// ListByJob returns runs of one job using LIMIT/OFFSET pagination and a total count.
func (r *JobRunPostgres) ListByJob(ctx context.Context, jobName string, pq repository.PageQuery) (*repository.PageResult[model.JobRun], error) {
	const qCount = `SELECT COUNT(*) FROM job_runs WHERE job_name = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, jobName).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, job_name, trigger, status, attempts, COALESCE(error, ''), started_at, finished_at
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, qList, jobName, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.JobRun, 0)
	for rows.Next() {
		var run model.JobRun
		var finished sql.NullTime
		if err := rows.Scan(
			&run.ID,
			&run.JobName,
			&run.Trigger,
			&run.Status,
			&run.Attempts,
			&run.Error,
			&run.StartedAt,
			&finished,
		); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		items = append(items, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.JobRun]{
		Items: items,
		Total: total,
	}, nil
}
