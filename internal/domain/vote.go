package domain

import "time"

// Vote 表示投票阶段中一名玩家对另一名玩家的一次指控。
// (SessionID, VoterID) 上的唯一索引在存储层保证每人每局至多一票；
// 投票只插入不更新，首票即终票。
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"not null;uniqueIndex:idx_vote_session_voter;index"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_vote_session_voter"` // 投票者的用户 ID
	AccusedID uint      `gorm:"not null"`                                    // 被指控玩家的用户 ID
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
