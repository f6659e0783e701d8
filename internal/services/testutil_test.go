package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init test logger: %v", err)
	}
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Immediate transactions keep concurrent writers waiting on the busy
	// timeout instead of failing on a deferred lock upgrade.
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.SkillScore{},
		&types.SkillScoreEntry{},
		&types.ErrorLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, log *logger.Logger) *types.User {
	t.Helper()
	user := &types.User{
		ID:              uuid.New(),
		Name:            "Test User",
		Email:           uuid.New().String() + "@example.com",
		Password:        "hashed-password",
		Role:            types.RoleUser,
		ExperienceLevel: types.ExperienceBeginner,
		Language:        "english",
	}
	userRepo := repos.NewUserRepo(db, log)
	if _, err := userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
