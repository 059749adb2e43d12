package mocks

import (
	"context"

	"explainx/internal/cron"
	"explainx/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) Jobs() []cron.Snapshot {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]cron.Snapshot)
}

func (m *MockJobScheduler) Describe(name string) (cron.Snapshot, error) {
	args := m.Called(name)
	return args.Get(0).(cron.Snapshot), args.Error(1)
}

func (m *MockJobScheduler) Trigger(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockJobScheduler) Start(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockJobScheduler) Stop(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

type MockRunLister struct {
	mock.Mock
}

func (m *MockRunLister) List(ctx context.Context, job string, limit, offset int) (*service.RunListResult, error) {
	args := m.Called(ctx, job, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RunListResult), args.Error(1)
}
