package domain

// EventType 标识一次会话状态变更的类别。
type EventType string

const (
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventSessionStarted   EventType = "session_started"
	EventRoundAdvanced    EventType = "round_advanced"
	EventVotingStarted    EventType = "voting_started"
	EventVoteCast         EventType = "vote_cast"
	EventSessionCompleted EventType = "session_completed"
)

// SessionEvent 是推送给会话内所有客户端的变更通知。
// 通知只携带“发生了什么”，不携带任何秘密信息 (身份、线索内容)；
// 客户端收到后通过 HTTP API 重新拉取自己视角下的派生状态。
type SessionEvent struct {
	Type      EventType     `json:"type"`
	SessionID uint          `json:"session_id"`
	ActorID   uint          `json:"actor_id,omitempty"` // 触发变更的用户 ID (投票事件不携带，避免泄露投票人)
	Status    SessionStatus `json:"status,omitempty"`   // 变更后的会话状态
	Round     int           `json:"round,omitempty"`    // 变更后的当前回合
}
