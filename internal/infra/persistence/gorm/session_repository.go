package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
)

// GormSessionRepository 是 SessionRepository 接口的 GORM 实现。
//
// 所有状态转移方法共用同一个模式：db.Transaction 内先对会话行加
// FOR UPDATE 排他锁，再校验状态守卫，最后执行多行写入。
// 并发的加入 / 开局 / 推进因此在会话粒度上串行化，
// 事务失败时整体回滚，不会留下部分应用的状态。
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository 创建 GormSessionRepository 实例
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSessionRepository")
	}
	return &GormSessionRepository{db: db}
}

// lockSession 在事务内对会话行加排他锁并返回最新数据。
// 会话不存在时返回 repository.ErrSessionNotFound。
func lockSession(tx *gorm.DB, sessionID uint) (*domain.Session, error) {
	var session domain.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: lock session %d: %w", sessionID, err)
	}
	return &session, nil
}

// FindByID 实现根据会话 ID 查找会话
func (r *GormSessionRepository) FindByID(ctx context.Context, id uint) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find session by id %d: %w", id, err)
	}
	return &session, nil
}

// FindByCode 实现根据加入码查找会话。加入码统一存储为大写，查询前归一化。
func (r *GormSessionRepository) FindByCode(ctx context.Context, code string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Where("session_code = ?", strings.ToUpper(code)).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("gorm: find session by code '%s': %w", code, err)
	}
	return &session, nil
}

// Save 实现保存会话信息（创建或更新）
func (r *GormSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	err := r.db.WithContext(ctx).Save(session).Error
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save session (id: %d, code: %s): %w", session.ID, session.SessionCode, err)
	}
	return nil
}

// IsCodeExists 实现检查加入码是否存在
func (r *GormSessionRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("session_code = ?", strings.ToUpper(code)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count sessions by code '%s': %w", code, err)
	}
	return count > 0, nil
}

// AddPlayer 实现事务内的加入：行锁 + 状态守卫 + 容量校验 + 剩余角色池抽取。
func (r *GormSessionRepository) AddPlayer(ctx context.Context, sessionID, userID uint, maxPlayers int, pick func(available []domain.Character) uint) (*domain.Player, bool, error) {
	var player *domain.Player
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}

		// 幂等：同一用户重复加入直接返回已有成员记录
		var existing domain.Player
		err = tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&existing).Error
		if err == nil {
			player = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("gorm: find existing player (session %d, user %d): %w", sessionID, userID, err)
		}

		if session.Status != domain.StatusWaiting {
			return repository.ErrStateConflict
		}

		var count int64
		if err := tx.Model(&domain.Player{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
			return fmt.Errorf("gorm: count players for session %d: %w", sessionID, err)
		}
		if count >= int64(maxPlayers) {
			return repository.ErrCapacityExceeded
		}

		// 剩余角色池 = 故事的全部角色 - 会话内已被占用的角色
		var available []domain.Character
		err = tx.Where("story_id = ?", session.StoryID).
			Where("id NOT IN (?)", tx.Session(&gorm.Session{NewDB: true}).
				Model(&domain.Player{}).Select("character_id").Where("session_id = ?", sessionID)).
			Order("id ASC").
			Find(&available).Error
		if err != nil {
			return fmt.Errorf("gorm: list available characters for session %d: %w", sessionID, err)
		}
		if len(available) == 0 {
			return repository.ErrPoolExhausted
		}

		newPlayer := domain.Player{
			SessionID:   sessionID,
			UserID:      userID,
			CharacterID: pick(available),
			Role:        domain.RoleDetective,
		}
		if err := tx.Create(&newPlayer).Error; err != nil {
			// (session, character) 唯一索引兜底行锁失效的情况
			if isUniqueViolation(err) {
				return repository.ErrDuplicateEntry
			}
			return fmt.Errorf("gorm: create player (session %d, user %d): %w", sessionID, userID, err)
		}

		if err := tx.Model(&domain.Session{}).Where("id = ?", sessionID).
			Update("last_active", time.Now()).Error; err != nil {
			return fmt.Errorf("gorm: touch session %d: %w", sessionID, err)
		}

		player = &newPlayer
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return player, created, nil
}

// RemovePlayer 实现事务内的离开：行锁 + 状态守卫 + 删除成员记录。
func (r *GormSessionRepository) RemovePlayer(ctx context.Context, sessionID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.StatusWaiting {
			return repository.ErrStateConflict
		}

		result := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).Delete(&domain.Player{})
		if result.Error != nil {
			return fmt.Errorf("gorm: delete player (session %d, user %d): %w", sessionID, userID, result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrPlayerNotFound
		}
		return nil
	})
}

// StartSession 实现事务内的开局：身份指定与状态翻转作为一个原子操作提交。
func (r *GormSessionRepository) StartSession(ctx context.Context, sessionID, murdererUserID uint) (*domain.Session, error) {
	var started *domain.Session

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if !session.Status.CanTransitionTo(domain.StatusInProgress) {
			return repository.ErrStateConflict
		}

		// 先全部置为侦探，再指定唯一凶手；两步在同一事务内，
		// 不可能出现 0 名或多名凶手的中间态被外部观察到。
		if err := tx.Model(&domain.Player{}).Where("session_id = ?", sessionID).
			Update("role", domain.RoleDetective).Error; err != nil {
			return fmt.Errorf("gorm: reset roles for session %d: %w", sessionID, err)
		}
		result := tx.Model(&domain.Player{}).
			Where("session_id = ? AND user_id = ?", sessionID, murdererUserID).
			Update("role", domain.RoleMurderer)
		if result.Error != nil {
			return fmt.Errorf("gorm: assign murderer for session %d: %w", sessionID, result.Error)
		}
		if result.RowsAffected == 0 {
			// 被选中的凶手必须是会话成员
			return repository.ErrPlayerNotFound
		}

		session.Status = domain.StatusInProgress
		session.CurrentRound = 1 // 开局即进入第一回合
		session.LastActive = time.Now()
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("gorm: flip session %d to in_progress: %w", sessionID, err)
		}
		started = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// AdvanceRound 实现事务内的回合推进，回合达到上限时同一事务内翻转为 voting。
func (r *GormSessionRepository) AdvanceRound(ctx context.Context, sessionID uint) (*domain.Session, error) {
	var advanced *domain.Session

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.StatusInProgress {
			return repository.ErrStateConflict
		}

		session.CurrentRound++
		if session.CurrentRound >= session.MaxRounds {
			session.CurrentRound = session.MaxRounds
			session.Status = domain.StatusVoting
		}
		session.LastActive = time.Now()
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("gorm: advance round for session %d: %w", sessionID, err)
		}
		advanced = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return advanced, nil
}

// CompleteVoting 实现事务内的投票结束：voting → completed。
func (r *GormSessionRepository) CompleteVoting(ctx context.Context, sessionID uint) (*domain.Session, error) {
	var completed *domain.Session

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if !session.Status.CanTransitionTo(domain.StatusCompleted) {
			return repository.ErrStateConflict
		}

		session.Status = domain.StatusCompleted
		session.LastActive = time.Now()
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("gorm: complete session %d: %w", sessionID, err)
		}
		completed = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// ListStaleWaiting 实现查询过期的 waiting 会话
func (r *GormSessionRepository) ListStaleWaiting(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_active < ?", domain.StatusWaiting, cutoff).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list stale waiting sessions: %w", err)
	}
	return sessions, nil
}

// DeleteCascade 实现删除会话及其关联记录
func (r *GormSessionRepository) DeleteCascade(ctx context.Context, sessionID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&domain.Vote{}).Error; err != nil {
			return fmt.Errorf("gorm: delete votes for session %d: %w", sessionID, err)
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&domain.Player{}).Error; err != nil {
			return fmt.Errorf("gorm: delete players for session %d: %w", sessionID, err)
		}
		if err := tx.Delete(&domain.Session{}, sessionID).Error; err != nil {
			return fmt.Errorf("gorm: delete session %d: %w", sessionID, err)
		}
		return nil
	})
}
