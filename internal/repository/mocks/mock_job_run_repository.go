package mocks

import (
	"context"
	"time"

	"explainx/internal/model"
	"explainx/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockJobRunRepository struct {
	mock.Mock
}

func (m *MockJobRunRepository) Create(ctx context.Context, run *model.JobRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockJobRunRepository) Finish(ctx context.Context, id, status string, attempts int, errMsg string, finishedAt time.Time) error {
	args := m.Called(ctx, id, status, attempts, errMsg, finishedAt)
	return args.Error(0)
}

func (m *MockJobRunRepository) ListByJob(ctx context.Context, jobName string, pq repository.PageQuery) (*repository.PageResult[model.JobRun], error) {
	args := m.Called(ctx, jobName, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.JobRun]), args.Error(1)
}
