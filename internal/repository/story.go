package repository

import (
	"context"

	"mystery-night/internal/domain"
)

// StoryRepository 定义了故事内容 (故事 / 角色 / 线索) 的只读检索操作。
// 故事内容由种子数据写入，运行时不可变。
type StoryRepository interface {
	// FindByID 根据故事 ID 查找故事。
	// 如果故事不存在，应返回 ErrStoryNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Story, error)

	// FindAll 返回全部故事列表，供创建会话时选择。
	FindAll(ctx context.Context) ([]domain.Story, error)

	// ListCharacters 返回属于指定故事的全部角色。
	ListCharacters(ctx context.Context, storyID uint) ([]domain.Character, error)

	// ListClues 返回属于指定故事的全部线索。
	// 回合与身份的可见性过滤是上层的纯函数，这里只负责取全集。
	ListClues(ctx context.Context, storyID uint) ([]domain.Clue, error)
}
