package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mystery-night/internal/domain"
)

// MigrateDB handles all database migrations using the provided GORM DB instance.
// 返回错误以便调用者知道迁移是否成功。
//
// 规则引擎依赖的三个唯一索引都由模型上的 GORM tag 声明：
//   players(session_id, user_id)     — 同一用户在同一会话只有一条成员记录
//   players(session_id, character_id) — 同一角色在同一会话只被一名玩家持有
//   votes(session_id, voter_id)      — 每人每局至多一票
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Story{},
		&domain.Character{},
		&domain.Clue{},
		&domain.Session{},
		&domain.Player{},
		&domain.Vote{},
		&domain.SessionResult{},
	)
	if err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
