package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
)

// GormPlayerRepository 是 PlayerRepository 接口的 GORM 实现 (只读)
type GormPlayerRepository struct {
	db *gorm.DB
}

// NewGormPlayerRepository 创建 GormPlayerRepository 实例
func NewGormPlayerRepository(db *gorm.DB) *GormPlayerRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPlayerRepository")
	}
	return &GormPlayerRepository{db: db}
}

// FindBySessionAndUser 实现查找用户在会话中的成员记录
func (r *GormPlayerRepository) FindBySessionAndUser(ctx context.Context, sessionID, userID uint) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("gorm: find player (session %d, user %d): %w", sessionID, userID, err)
	}
	return &player, nil
}

// ListBySession 实现按加入顺序返回会话的全部玩家
func (r *GormPlayerRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.Player, error) {
	var players []domain.Player
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list players for session %d: %w", sessionID, err)
	}
	return players, nil
}

// CountBySession 实现统计会话玩家数量
func (r *GormPlayerRepository) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Player{}).
		Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count players for session %d: %w", sessionID, err)
	}
	return count, nil
}
