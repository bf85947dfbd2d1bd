package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mystery-night/internal/domain"
)

// StateRepository 是 repository.StateRepository 的 Mock 实现
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *StateRepository) AddPresence(ctx context.Context, sessionID, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *StateRepository) RemovePresence(ctx context.Context, sessionID, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *StateRepository) ListPresence(ctx context.Context, sessionID uint) ([]uint, error) {
	args := m.Called(ctx, sessionID)
	var r0 []uint
	if args.Get(0) != nil {
		r0 = args.Get(0).([]uint)
	}
	return r0, args.Error(1)
}
