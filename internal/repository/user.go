package repository

import (
	"context"

	"mystery-night/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByID 根据用户 ID 查找用户。
	// 如果用户不存在，应返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindByUsername 根据用户名查找用户。
	// 如果用户不存在，应返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// Save 保存用户信息。
	// 违反唯一约束 (用户名或邮箱已存在) 时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error
}
