package domain

import "time"

// Story 表示一个剧本杀故事包 (静态内容)。
// 由内容种子数据创建，运行时不可变；是开局 / 胜负约束的权威来源。
type Story struct {
	ID          uint      `gorm:"primaryKey"`             // 故事唯一标识符 (主键)
	Title       string    `gorm:"type:varchar(191);not null"` // 故事标题
	Description string    `gorm:"type:text"`              // 故事简介
	Setting     string    `gorm:"type:text"`              // 故事背景设定
	MinPlayers  int       `gorm:"not null"`               // 开局所需最少玩家数
	MaxPlayers  int       `gorm:"not null"`               // 会话允许的最大玩家数
	TotalRounds int       `gorm:"not null"`               // 回合总数 (创建会话时复制到 Session.MaxRounds)
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Character 表示属于某个故事的角色。
// 同一会话内一个角色只能被一名玩家持有 (由 Player 上的唯一索引保证)。
type Character struct {
	ID          uint   `gorm:"primaryKey"`             // 角色唯一标识符 (主键)
	StoryID     uint   `gorm:"index;not null"`         // 所属故事 ID (添加索引)
	Name        string `gorm:"type:varchar(191);not null"` // 角色名称
	Description string `gorm:"type:text"`              // 角色描述
	Outfit      string `gorm:"type:text"`              // 角色服装
	Background  string `gorm:"type:text"`              // 角色背景故事
}
