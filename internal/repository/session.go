package repository

import (
	"context"
	"time"

	"mystery-night/internal/domain"
)

// SessionRepository 定义了会话数据的存储与状态机推进操作。
//
// 状态转移相关的方法必须在单个事务内完成“状态守卫 + 多行写入”，
// 守卫失败时返回 ErrStateConflict。这是规则引擎的存储边界：
// 调用方 (Service) 基于快照做业务校验，存储层对最新持久状态做最终裁决。
type SessionRepository interface {
	// FindByID 根据会话 ID 查找会话。
	// 如果会话不存在，应返回 ErrSessionNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Session, error)

	// FindByCode 根据加入码查找会话，匹配大小写不敏感。
	// 如果会话不存在，应返回 ErrSessionNotFound。
	FindByCode(ctx context.Context, code string) (*domain.Session, error)

	// Save 保存会话信息 (创建或更新)。
	// 加入码冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, session *domain.Session) error

	// IsCodeExists 检查加入码是否已存在。
	IsCodeExists(ctx context.Context, code string) (bool, error)

	// AddPlayer 在单个事务中向会话添加一名玩家：
	// 对会话行加排他锁、校验状态为 waiting (否则 ErrStateConflict)、
	// 校验人数未达 maxPlayers (否则 ErrCapacityExceeded)、
	// 计算剩余角色池并通过 pick 回调让调用方选择角色 (池空时 ErrPoolExhausted)、
	// 插入 Player 行。并发加入因会话行锁而串行化，不会出现角色重复。
	//
	// 幂等：若 (session, user) 已有 Player 行则原样返回，created 为 false。
	// pick 接收剩余角色集合并返回选中角色的 ID，随机性由调用方提供。
	AddPlayer(ctx context.Context, sessionID, userID uint, maxPlayers int, pick func(available []domain.Character) uint) (player *domain.Player, created bool, err error)

	// RemovePlayer 在单个事务中把玩家移出会话：
	// 锁定会话行、校验状态为 waiting (否则 ErrStateConflict)、删除 Player 行。
	// 角色随删除自动回到可用池。玩家不存在时返回 ErrPlayerNotFound。
	RemovePlayer(ctx context.Context, sessionID, userID uint) error

	// StartSession 在单个事务中完成开局：
	// 锁定会话行、校验状态为 waiting (否则 ErrStateConflict)、
	// 把全部玩家置为侦探、把 murdererUserID 对应的玩家置为凶手、
	// 翻转状态为 in_progress 并把 CurrentRound 置为 1。
	// 部分应用 (角色已写、状态未翻转) 不可能出现。
	// 返回推进后的最新会话。
	StartSession(ctx context.Context, sessionID, murdererUserID uint) (*domain.Session, error)

	// AdvanceRound 在单个事务中推进回合：
	// 锁定会话行、校验状态为 in_progress (否则 ErrStateConflict)、
	// CurrentRound + 1；当回合达到 MaxRounds 时同一条更新把状态置为 voting。
	// 返回推进后的最新会话。
	AdvanceRound(ctx context.Context, sessionID uint) (*domain.Session, error)

	// CompleteVoting 在单个事务中结束投票：
	// 锁定会话行、校验状态为 voting (否则 ErrStateConflict)、状态置为 completed。
	// 返回推进后的最新会话。
	CompleteVoting(ctx context.Context, sessionID uint) (*domain.Session, error)

	// ListStaleWaiting 返回在 cutoff 之前就不再活跃、且仍处于 waiting 的会话。
	// 供后台清理任务使用。
	ListStaleWaiting(ctx context.Context, cutoff time.Time) ([]domain.Session, error)

	// DeleteCascade 删除会话及其全部玩家与投票记录。
	DeleteCascade(ctx context.Context, sessionID uint) error
}
