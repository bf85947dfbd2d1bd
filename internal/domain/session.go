package domain

import "time"

// SessionStatus 表示会话状态机中的一个状态。
type SessionStatus string

// 会话状态只能沿 waiting → in_progress → voting → completed 前进，不允许回退。
const (
	StatusWaiting    SessionStatus = "waiting"     // 等待玩家加入，可加入状态
	StatusInProgress SessionStatus = "in_progress" // 游戏进行中，主持人推进回合
	StatusVoting     SessionStatus = "voting"      // 投票阶段
	StatusCompleted  SessionStatus = "completed"   // 终态，结果揭晓，不再允许任何变更
)

// CanTransitionTo 判断状态机是否允许从当前状态前进到 next。
// 状态只能沿定义的转移图前进一格，不允许跳跃或回退。
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusWaiting:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusVoting
	case StatusVoting:
		return next == StatusCompleted
	default:
		// completed 是终态；未知状态一律拒绝
		return false
	}
}

// Session 表示一个故事的一次游玩实例 (一局游戏)。
type Session struct {
	ID           uint          `gorm:"primaryKey"`     // 会话唯一标识符 (主键)
	HostID       uint          `gorm:"index;not null"` // 创建该会话的用户 ID，会话生命周期内不变
	StoryID      uint          `gorm:"index;not null"` // 游玩的故事 ID
	SessionCode  string        `gorm:"uniqueIndex:idx_session_code;type:varchar(191);not null"` // 加入码，唯一；统一存储为大写，匹配时大小写不敏感
	PasswordHash string        `gorm:"type:text"`      // 可选的会话密码 (bcrypt 哈希)，为空表示无密码
	Status       SessionStatus `gorm:"type:varchar(32);not null;default:'waiting'"` // 状态机状态
	CurrentRound int           `gorm:"not null;default:0"` // 当前回合，0 ≤ CurrentRound ≤ MaxRounds
	MaxRounds    int           `gorm:"not null"`       // 回合上限 (创建时从 Story.TotalRounds 复制)
	CreatedAt    time.Time     `gorm:"autoCreateTime"`
	LastActive   time.Time     `gorm:"index"`          // 最后活跃时间 (用于清理不活跃会话)
	UpdatedAt    time.Time     `gorm:"autoUpdateTime"`
}

// HasPassword 返回会话是否设置了密码。
func (s *Session) HasPassword() bool {
	return s.PasswordHash != ""
}

// SessionResult 表示一局已完成会话的存档结果。
// 由后台任务在会话进入 completed 后写入，保证揭晓结果在清理后仍可查询。
type SessionResult struct {
	ID            uint      `gorm:"primaryKey"`
	SessionID     uint      `gorm:"uniqueIndex:idx_result_session;not null"` // 每个会话至多一条结果
	MurdererID    uint      `gorm:"not null"`           // 真凶的用户 ID
	DetectivesWin bool      `gorm:"not null"`           // 侦探阵营是否获胜
	TallyJSON     string    `gorm:"type:text;not null"` // 票数统计的 JSON 序列化
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}
