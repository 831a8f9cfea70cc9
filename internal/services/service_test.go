package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique name per test so the pooled connections share one
	// database without leaking state across tests
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.HabitLog{},
		&models.AIInsight{},
		&models.ActionUsage{},
		&models.Subscription{},
		&models.FoodScan{},
		&models.CommunityPost{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user.ID
}

// fixedClock pins service time so window and streak math is
// deterministic.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// stubPremium satisfies PremiumChecker with a fixed answer.
type stubPremium struct{ premium bool }

func (s stubPremium) HasPremiumAccess(uuid.UUID) bool { return s.premium }
