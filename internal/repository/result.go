package repository

import (
	"context"

	"mystery-night/internal/domain"
)

// ResultRepository 定义了已完成会话结果存档的存储和检索操作。
type ResultRepository interface {
	// Save 保存会话结果。每个会话至多一条；重复写入同一会话视为幂等成功。
	Save(ctx context.Context, result *domain.SessionResult) error

	// FindBySession 根据会话 ID 查找已存档的结果。
	// 不存在时返回 ErrResultNotFound。
	FindBySession(ctx context.Context, sessionID uint) (*domain.SessionResult, error)
}
