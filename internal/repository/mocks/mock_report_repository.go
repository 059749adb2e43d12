package mocks

import (
	"context"
	"time"

	"explainx/internal/model"
	"explainx/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, r *model.Report) (*model.Report, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) ListRequested(ctx context.Context, since time.Time) ([]repository.ReportRef, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReportRef), args.Error(1)
}

func (m *MockReportRepository) ListRetryable(ctx context.Context, maxAttempts int, updatedBefore time.Time, limit int) ([]model.Report, error) {
	args := m.Called(ctx, maxAttempts, updatedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportRepository) MarkRequested(ctx context.Context, id, externalID string, at time.Time) error {
	args := m.Called(ctx, id, externalID, at)
	return args.Error(0)
}

func (m *MockReportRepository) MarkFailed(ctx context.Context, id, reason string, at time.Time) error {
	args := m.Called(ctx, id, reason, at)
	return args.Error(0)
}

func (m *MockReportRepository) List(ctx context.Context, f repository.ReportFilter, pq repository.PageQuery) (*repository.PageResult[model.Report], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Report]), args.Error(1)
}
