package repository

import (
	"context"

	"mystery-night/internal/domain"
)

// PlayerRepository 定义了会话成员记录的只读检索操作。
// 写入 (加入 / 离开 / 身份指定) 全部经由 SessionRepository 的事务方法完成。
type PlayerRepository interface {
	// FindBySessionAndUser 查找用户在会话中的成员记录。
	// 不存在时返回 ErrPlayerNotFound。
	FindBySessionAndUser(ctx context.Context, sessionID, userID uint) (*domain.Player, error)

	// ListBySession 返回会话的全部玩家，按加入顺序 (id 升序) 排列。
	// 该顺序同时是票数统计的平票顺序，属于被测试固定下来的策略。
	ListBySession(ctx context.Context, sessionID uint) ([]domain.Player, error)

	// CountBySession 返回会话当前的玩家数量。
	CountBySession(ctx context.Context, sessionID uint) (int64, error)
}
