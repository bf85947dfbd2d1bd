package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
)

// GormResultRepository 是 ResultRepository 接口的 GORM 实现
type GormResultRepository struct {
	db *gorm.DB
}

// NewGormResultRepository 创建 GormResultRepository 实例
func NewGormResultRepository(db *gorm.DB) *GormResultRepository {
	if db == nil {
		panic("database connection cannot be nil for GormResultRepository")
	}
	return &GormResultRepository{db: db}
}

// Save 实现保存会话结果。重复写入同一会话幂等成功 (存档任务可安全重试)。
func (r *GormResultRepository) Save(ctx context.Context, result *domain.SessionResult) error {
	err := r.db.WithContext(ctx).Create(result).Error
	if err != nil {
		if isUniqueViolation(err) {
			// 结果已存在，视为成功
			return nil
		}
		return fmt.Errorf("gorm: save result for session %d: %w", result.SessionID, err)
	}
	return nil
}

// FindBySession 实现根据会话 ID 查找已存档结果
func (r *GormResultRepository) FindBySession(ctx context.Context, sessionID uint) (*domain.SessionResult, error) {
	var result domain.SessionResult
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrResultNotFound
		}
		return nil, fmt.Errorf("gorm: find result for session %d: %w", sessionID, err)
	}
	return &result, nil
}
