package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示尝试插入或更新的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrStateConflict 表示事务内的状态守卫失败 (例如会话已不在预期状态)。
	// 状态机合法性必须在存储边界校验，而不是信任调用方缓存的快照。
	ErrStateConflict = errors.New("repository: state guard failed")
	// ErrCapacityExceeded 表示会话人数已达故事允许的上限
	ErrCapacityExceeded = errors.New("repository: session capacity exceeded")
	// ErrPoolExhausted 表示会话的可用角色池已耗尽
	ErrPoolExhausted = errors.New("repository: character pool exhausted")
)

// 特定资源的错误 (基于通用错误创建)
var (
	ErrUserNotFound    = ErrNotFound
	ErrStoryNotFound   = ErrNotFound
	ErrSessionNotFound = ErrNotFound
	ErrPlayerNotFound  = ErrNotFound
	ErrResultNotFound  = ErrNotFound
)
