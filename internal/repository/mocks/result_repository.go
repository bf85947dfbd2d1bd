package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mystery-night/internal/domain"
)

// ResultRepository 是 repository.ResultRepository 的 Mock 实现
type ResultRepository struct {
	mock.Mock
}

func (m *ResultRepository) Save(ctx context.Context, result *domain.SessionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *ResultRepository) FindBySession(ctx context.Context, sessionID uint) (*domain.SessionResult, error) {
	args := m.Called(ctx, sessionID)
	var r0 *domain.SessionResult
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.SessionResult)
	}
	return r0, args.Error(1)
}
