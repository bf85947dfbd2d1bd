package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mystery-night/internal/domain"
)

// StoryRepository 是 repository.StoryRepository 的 Mock 实现
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) FindByID(ctx context.Context, id uint) (*domain.Story, error) {
	args := m.Called(ctx, id)
	var r0 *domain.Story
	if args.Get(0) != nil {
		r0 = args.Get(0).(*domain.Story)
	}
	return r0, args.Error(1)
}

func (m *StoryRepository) FindAll(ctx context.Context) ([]domain.Story, error) {
	args := m.Called(ctx)
	var r0 []domain.Story
	if args.Get(0) != nil {
		r0 = args.Get(0).([]domain.Story)
	}
	return r0, args.Error(1)
}

func (m *StoryRepository) ListCharacters(ctx context.Context, storyID uint) ([]domain.Character, error) {
	args := m.Called(ctx, storyID)
	var r0 []domain.Character
	if args.Get(0) != nil {
		r0 = args.Get(0).([]domain.Character)
	}
	return r0, args.Error(1)
}

func (m *StoryRepository) ListClues(ctx context.Context, storyID uint) ([]domain.Clue, error) {
	args := m.Called(ctx, storyID)
	var r0 []domain.Clue
	if args.Get(0) != nil {
		r0 = args.Get(0).([]domain.Clue)
	}
	return r0, args.Error(1)
}
