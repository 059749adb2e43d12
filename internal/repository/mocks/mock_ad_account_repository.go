package mocks

import (
	"context"
	"time"

	"explainx/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAdAccountRepository struct {
	mock.Mock
}

func (m *MockAdAccountRepository) FindActive(ctx context.Context) (*model.AdAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdAccount), args.Error(1)
}

func (m *MockAdAccountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	args := m.Called(ctx, id, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}
