package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
)

// GormStoryRepository 是 StoryRepository 接口的 GORM 实现。
// 故事内容只读，不提供写入方法。
type GormStoryRepository struct {
	db *gorm.DB
}

// NewGormStoryRepository 创建 GormStoryRepository 实例
func NewGormStoryRepository(db *gorm.DB) *GormStoryRepository {
	if db == nil {
		panic("database connection cannot be nil for GormStoryRepository")
	}
	return &GormStoryRepository{db: db}
}

// FindByID 实现根据故事 ID 查找故事
func (r *GormStoryRepository) FindByID(ctx context.Context, id uint) (*domain.Story, error) {
	var story domain.Story
	err := r.db.WithContext(ctx).First(&story, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStoryNotFound
		}
		return nil, fmt.Errorf("gorm: find story by id %d: %w", id, err)
	}
	return &story, nil
}

// FindAll 实现返回全部故事列表
func (r *GormStoryRepository) FindAll(ctx context.Context) ([]domain.Story, error) {
	var stories []domain.Story
	err := r.db.WithContext(ctx).Order("id ASC").Find(&stories).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all stories: %w", err)
	}
	return stories, nil
}

// ListCharacters 实现返回故事的全部角色
func (r *GormStoryRepository) ListCharacters(ctx context.Context, storyID uint) ([]domain.Character, error) {
	var characters []domain.Character
	err := r.db.WithContext(ctx).Where("story_id = ?", storyID).Order("id ASC").Find(&characters).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list characters for story %d: %w", storyID, err)
	}
	return characters, nil
}

// ListClues 实现返回故事的全部线索
func (r *GormStoryRepository) ListClues(ctx context.Context, storyID uint) ([]domain.Clue, error) {
	var clues []domain.Clue
	err := r.db.WithContext(ctx).Where("story_id = ?", storyID).Order("round_number ASC, id ASC").Find(&clues).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list clues for story %d: %w", storyID, err)
	}
	return clues, nil
}
