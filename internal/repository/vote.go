package repository

import (
	"context"

	"mystery-night/internal/domain"
)

// VoteRepository 定义了投票记录的存储和检索操作。
type VoteRepository interface {
	// Cast 在单个事务中写入一票：
	// 锁定会话行、校验状态为 voting (否则 ErrStateConflict)、插入 Vote 行。
	// (session, voter) 上的唯一索引把重复投票拒绝在存储层，
	// 近乎同时的两次投票只会有一次成功，另一次得到 ErrDuplicateEntry。
	Cast(ctx context.Context, vote *domain.Vote) error

	// ListBySession 返回会话的全部投票，按投票时间 (id 升序) 排列。
	ListBySession(ctx context.Context, sessionID uint) ([]domain.Vote, error)
}
