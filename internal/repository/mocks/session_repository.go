package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"mystery-night/internal/domain"
)

// SessionRepository 是 repository.SessionRepository 的 Mock 实现
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) FindByID(ctx context.Context, id uint) (*domain.Session, error) {
	args := m.Called(ctx, id)
	var r0 *domain.Session
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Session)
	}
	return r0, args.Error(1)
}

func (m *SessionRepository) FindByCode(ctx context.Context, code string) (*domain.Session, error) {
	args := m.Called(ctx, code)
	var r0 *domain.Session
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Session)
	}
	return r0, args.Error(1)
}

func (m *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepository) AddPlayer(ctx context.Context, sessionID, userID uint, maxPlayers int, pick func(available []domain.Character) uint) (*domain.Player, bool, error) {
	args := m.Called(ctx, sessionID, userID, maxPlayers, pick)
	var r0 *domain.Player
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Player)
	}
	return r0, args.Bool(1), args.Error(2)
}

func (m *SessionRepository) RemovePlayer(ctx context.Context, sessionID, userID uint) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *SessionRepository) StartSession(ctx context.Context, sessionID, murdererUserID uint) (*domain.Session, error) {
	args := m.Called(ctx, sessionID, murdererUserID)
	var r0 *domain.Session
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Session)
	}
	return r0, args.Error(1)
}

func (m *SessionRepository) AdvanceRound(ctx context.Context, sessionID uint) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	var r0 *domain.Session
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Session)
	}
	return r0, args.Error(1)
}

func (m *SessionRepository) CompleteVoting(ctx context.Context, sessionID uint) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	var r0 *domain.Session
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Session)
	}
	return r0, args.Error(1)
}

func (m *SessionRepository) ListStaleWaiting(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	args := m.Called(ctx, cutoff)
	var r0 []domain.Session
	if args.Get(0) != nil {
		r0 = args.Get(0).([]domain.Session)
	}
	return r0, args.Error(1)
}

func (m *SessionRepository) DeleteCascade(ctx context.Context, sessionID uint) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
