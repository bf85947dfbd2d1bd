package domain

import "time"

// Role 表示玩家在一局游戏中的秘密身份。
type Role string

const (
	RoleDetective Role = "detective" // 侦探 (加入时的默认身份)
	RoleMurderer  Role = "murderer"  // 凶手 (开局时随机指定，且每局恰好一名)
)

// Player 表示用户在某个会话中的成员关系：身份 + 角色绑定。
// 唯一索引保证同一用户在同一会话只有一条记录，且同一角色不会被两名玩家持有。
type Player struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   uint      `gorm:"not null;uniqueIndex:idx_player_session_user;uniqueIndex:idx_player_session_character"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_player_session_user;index"`
	CharacterID uint      `gorm:"not null;uniqueIndex:idx_player_session_character"`
	Role        Role      `gorm:"type:varchar(32);not null;default:'detective'"` // 加入时默认侦探，开局时重新指定一次
	JoinedAt    time.Time `gorm:"autoCreateTime"` // 加入时间，同时决定平票时的排序
}
