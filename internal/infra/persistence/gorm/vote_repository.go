package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
)

// GormVoteRepository 是 VoteRepository 接口的 GORM 实现
type GormVoteRepository struct {
	db *gorm.DB
}

// NewGormVoteRepository 创建 GormVoteRepository 实例
func NewGormVoteRepository(db *gorm.DB) *GormVoteRepository {
	if db == nil {
		panic("database connection cannot be nil for GormVoteRepository")
	}
	return &GormVoteRepository{db: db}
}

// Cast 实现事务内的投票写入。
// 重复投票由 (session_id, voter_id) 唯一索引拒绝，而不是先查后插；
// 先查后插在没有约束兜底时就是竞态。
func (r *GormVoteRepository) Cast(ctx context.Context, vote *domain.Vote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, vote.SessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.StatusVoting {
			return repository.ErrStateConflict
		}

		if err := tx.Create(vote).Error; err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateEntry
			}
			return fmt.Errorf("gorm: cast vote (session %d, voter %d): %w", vote.SessionID, vote.VoterID, err)
		}
		return nil
	})
}

// ListBySession 实现按投票顺序返回会话的全部投票
func (r *GormVoteRepository) ListBySession(ctx context.Context, sessionID uint) ([]domain.Vote, error) {
	var votes []domain.Vote
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list votes for session %d: %w", sessionID, err)
	}
	return votes, nil
}
