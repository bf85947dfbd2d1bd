package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mystery-night/internal/domain"
)

// PlayerRepository 是 repository.PlayerRepository 的 Mock 实现
type PlayerRepository struct {
	mock.Mock
}

func (m *PlayerRepository) FindBySessionAndUser(ctx context.Context, sessionID, userID uint) (*domain.Player, error) {
	args := m.Called(ctx, sessionID, userID)
	var r0 *domain.Player
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Player)
	}
	return r0, args.Error(1)
}

func (m *PlayerRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.Player, error) {
	args := m.Called(ctx, sessionID)
	var r0 []domain.Player
	if args.Get(0) != nil {
		r0 = args.Get(0).([]domain.Player)
	}
	return r0, args.Error(1)
}

func (m *PlayerRepository) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}
