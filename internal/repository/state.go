package repository

import (
	"context"

	"mystery-night/internal/domain"
)

// StateRepository 定义了挥发性会话状态 (通知通道与在线列表) 的操作。
// 持久状态的唯一权威是关系库；这里只承载多客户端扇出所需的瞬态信息。
type StateRepository interface {
	// PublishSessionEvent 向会话的通知通道发布一条变更事件。
	// 所有订阅该会话的服务实例都会收到并转发给本地连接的客户端。
	PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error

	// AddPresence 将用户加入会话的在线集合。
	AddPresence(ctx context.Context, sessionID, userID uint) error

	// RemovePresence 将用户移出会话的在线集合。
	RemovePresence(ctx context.Context, sessionID, userID uint) error

	// ListPresence 返回会话当前在线的用户 ID 列表。
	ListPresence(ctx context.Context, sessionID uint) ([]uint, error)
}
