package service

import (
	"context"
	"errors"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"

	"github.com/sirupsen/logrus"
)

// StoryService 负责故事目录的只读业务逻辑。
type StoryService struct {
	storyRepo repository.StoryRepository
}

// NewStoryService 创建 StoryService 实例。
func NewStoryService(storyRepo repository.StoryRepository) *StoryService {
	if storyRepo == nil {
		panic("StoryRepository cannot be nil for StoryService")
	}
	return &StoryService{storyRepo: storyRepo}
}

// ListStories 返回全部可游玩的故事。
func (s *StoryService) ListStories(ctx context.Context) ([]domain.Story, error) {
	stories, err := s.storyRepo.FindAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list stories")
		return nil, ErrInternalServer
	}
	return stories, nil
}

// GetStory 返回指定故事及其角色列表。
func (s *StoryService) GetStory(ctx context.Context, storyID uint) (*domain.Story, []domain.Character, error) {
	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, repository.ErrStoryNotFound) {
			return nil, nil, ErrStoryNotFound
		}
		logrus.WithError(err).WithField("story_id", storyID).Error("Failed to load story")
		return nil, nil, ErrInternalServer
	}
	characters, err := s.storyRepo.ListCharacters(ctx, storyID)
	if err != nil {
		logrus.WithError(err).WithField("story_id", storyID).Error("Failed to list story characters")
		return nil, nil, ErrInternalServer
	}
	return story, characters, nil
}
