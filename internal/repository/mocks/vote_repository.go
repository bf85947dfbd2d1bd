package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mystery-night/internal/domain"
)

// VoteRepository 是 repository.VoteRepository 的 Mock 实现
type VoteRepository struct {
	mock.Mock
}

func (m *VoteRepository) Cast(ctx context.Context, vote *domain.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *VoteRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.Vote, error) {
	args := m.Called(ctx, sessionID)
	var r0 []domain.Vote
	if args.Get(0) != nil {
		r0 = args.Get(0).([]domain.Vote)
	}
	return r0, args.Error(1)
}
