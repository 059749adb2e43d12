package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"explainx/internal/cron"
	"explainx/internal/model"
	"explainx/internal/repository"
)

const historyWriteTimeout = 5 * time.Second

// RunListResult is the service-level DTO for paginated job runs.
type RunListResult struct {
	Items []model.JobRun `json:"data"`
	Total int            `json:"total"`
}

// RunHistory persists every cron run to job_runs. Write failures are logged
// and never affect the job.
type RunHistory struct {
	repo repository.JobRunRepository
	log  *zap.Logger
}

var _ cron.RunObserver = (*RunHistory)(nil)

func NewRunHistory(repo repository.JobRunRepository, log *zap.Logger) *RunHistory {
	if log == nil {
		log = zap.NewNop()
	}
	return &RunHistory{repo: repo, log: log.With(zap.String("component", "run_history"))}
}

func (h *RunHistory) RunStarted(ctx context.Context, rec cron.RunRecord) {
	if rec.Outcome == cron.OutcomeSkipped {
		return
	}
	ctx, cancel := h.writeContext(ctx)
	defer cancel()

	run := &model.JobRun{
		ID:        rec.ID,
		JobName:   rec.Job,
		Trigger:   string(rec.Trigger),
		Status:    model.JobRunRunning,
		StartedAt: rec.StartedAt.UTC(),
	}
	if err := h.repo.Create(ctx, run); err != nil {
		h.log.Error("job_run_create_failed", zap.String("job", rec.Job), zap.String("run_id", rec.ID), zap.Error(err))
	}
}

func (h *RunHistory) RunFinished(ctx context.Context, rec cron.RunRecord) {
	ctx, cancel := h.writeContext(ctx)
	defer cancel()

	finished := rec.FinishedAt.UTC()
	status := runStatus(rec.Outcome)

	var err error
	if rec.Outcome == cron.OutcomeSkipped {
		err = h.repo.Create(ctx, &model.JobRun{
			ID:         rec.ID,
			JobName:    rec.Job,
			Trigger:    string(rec.Trigger),
			Status:     status,
			StartedAt:  rec.StartedAt.UTC(),
			FinishedAt: &finished,
		})
	} else {
		err = h.repo.Finish(ctx, rec.ID, status, rec.Attempts, rec.Error, finished)
	}
	if err != nil {
		h.log.Error("job_run_finish_failed", zap.String("job", rec.Job), zap.String("run_id", rec.ID), zap.Error(err))
	}
}

// List returns runs of one job, newest first.
func (h *RunHistory) List(ctx context.Context, job string, limit, offset int) (*RunListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	res, err := h.repo.ListByJob(ctx, job, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &RunListResult{Items: res.Items, Total: res.Total}, nil
}

// writeContext survives scheduler shutdown so the final row still lands.
func (h *RunHistory) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
}

func runStatus(o cron.Outcome) string {
	switch o {
	case cron.OutcomeSucceeded:
		return model.JobRunSucceeded
	case cron.OutcomeFailed:
		return model.JobRunFailed
	case cron.OutcomeSkipped:
		return model.JobRunSkipped
	default:
		return model.JobRunRunning
	}
}
