package domain

// Clue 表示按回合与身份双重门控的故事线索 (静态内容)。
type Clue struct {
	ID            uint   `gorm:"primaryKey"`
	StoryID       uint   `gorm:"index;not null"`         // 所属故事 ID
	RoundNumber   int    `gorm:"not null"`               // 该线索在第几回合解锁
	Title         string `gorm:"type:varchar(191);not null"`
	Content       string `gorm:"type:text;not null"`
	IsForMurderer bool   `gorm:"not null;default:false"` // true 表示仅凶手可见；false 表示仅侦探可见
}

// VisibleTo 判断线索在给定回合对给定身份是否可见。
// 两条线索流 (侦探流 / 凶手流) 互斥：侦探只看到非凶手线索，凶手只看到凶手线索，
// 且都只包含回合数不超过当前回合的部分。纯函数，无任何副作用。
func (c Clue) VisibleTo(currentRound int, role Role) bool {
	if c.RoundNumber > currentRound {
		return false
	}
	return c.IsForMurderer == (role == RoleMurderer)
}
