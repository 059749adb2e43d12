package mocks

import (
	"context"

	"explainx/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) ProcessDailyReports(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockReportService) RetryFailedReports(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockReportService) List(ctx context.Context, status string, limit, offset int) (*service.ReportListResult, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportListResult), args.Error(1)
}

func (m *MockReportService) SnapshotURL(ctx context.Context, date string) (string, error) {
	args := m.Called(ctx, date)
	return args.String(0), args.Error(1)
}
