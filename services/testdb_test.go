package services

import (
	"fmt"
	"testing"

	"progression-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database per test. The pool is pinned to
// one connection: every pooled connection would otherwise see its own empty
// in-memory database, and the single connection also serializes the
// concurrent-claim tests the way Postgres row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.UserProgression{},
		&models.XPTransaction{},
		&models.QuestDefinition{},
		&models.UserQuest{},
		&models.RewardGrant{},
		&models.BattlePass{},
		&models.BattlePassReward{},
		&models.BattlePassProgress{},
		&models.BattlePassRewardClaim{},
		&models.BadgeDefinition{},
		&models.UserBadge{},
		&models.EntitlementMirror{},
		&models.ProfileMirror{},
		&models.FriendEdge{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
