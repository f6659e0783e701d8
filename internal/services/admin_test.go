package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

func TestAdminDashboard(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	log := newTestLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	errorLogRepo := repos.NewErrorLogRepo(db, log)
	scoreRepo := repos.NewSkillScoreRepo(db, log)
	scoreService := NewSkillScoreService(db, log, scoreRepo, userRepo)
	svc := NewAdminService(db, log, userRepo, errorLogRepo, scoreRepo)

	alice := createTestUser(t, db, log)
	bob := createTestUser(t, db, log)

	logs := []*types.ErrorLog{
		{ID: uuid.New(), UserID: alice.ID, ErrorInput: "a", ErrorType: "error_message", Difficulty: types.DifficultyEasy, Analysis: datatypes.JSON(`{}`), TestFixStatus: types.TestFixNotTested},
		{ID: uuid.New(), UserID: alice.ID, ErrorInput: "b", ErrorType: "error_message", Difficulty: types.DifficultyHard, Analysis: datatypes.JSON(`{}`), TestFixStatus: types.TestFixNotTested},
		{ID: uuid.New(), UserID: bob.ID, ErrorInput: "c", ErrorType: "stack_trace", Difficulty: types.DifficultyEasy, Analysis: datatypes.JSON(`{}`), TestFixStatus: types.TestFixNotTested},
	}
	if _, err := errorLogRepo.Create(ctx, nil, logs); err != nil {
		t.Fatalf("seeding error logs failed: %v", err)
	}

	if _, err := scoreService.ApplyAnalysis(ctx, alice.ID, logs[0].ID, 5, types.DifficultyEasy); err != nil {
		t.Fatalf("ApplyAnalysis returned error: %v", err)
	}
	if _, err := scoreService.ApplyAnalysis(ctx, bob.ID, logs[2].ID, 10, types.DifficultyEasy); err != nil {
		t.Fatalf("ApplyAnalysis returned error: %v", err)
	}

	stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("total users = %d, want 2", stats.TotalUsers)
	}
	if stats.TotalErrors != 3 {
		t.Errorf("total errors = %d, want 3", stats.TotalErrors)
	}
	if stats.AvgSkillScore != 7.5 {
		t.Errorf("avg score = %v, want 7.5", stats.AvgSkillScore)
	}
	if stats.ErrorsByDifficulty[types.DifficultyEasy] != 2 {
		t.Errorf("easy count = %d, want 2", stats.ErrorsByDifficulty[types.DifficultyEasy])
	}
	if stats.ErrorsByDifficulty[types.DifficultyHard] != 1 {
		t.Errorf("hard count = %d, want 1", stats.ErrorsByDifficulty[types.DifficultyHard])
	}
	if stats.NewUsersLast30Days != 2 {
		t.Errorf("new users = %d, want 2", stats.NewUsersLast30Days)
	}
	var dailyTotal int64
	for _, day := range stats.DailyStats {
		dailyTotal += day.Count
	}
	if dailyTotal != 3 {
		t.Errorf("daily stats total = %d, want 3", dailyTotal)
	}
}

func TestAdminListErrorsPaginates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	log := newTestLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	errorLogRepo := repos.NewErrorLogRepo(db, log)
	scoreRepo := repos.NewSkillScoreRepo(db, log)
	svc := NewAdminService(db, log, userRepo, errorLogRepo, scoreRepo)

	user := createTestUser(t, db, log)
	for i := 0; i < 5; i++ {
		logEntry := &types.ErrorLog{
			ID: uuid.New(), UserID: user.ID, ErrorInput: "x", ErrorType: "error_message",
			Difficulty: types.DifficultyMedium, Analysis: datatypes.JSON(`{}`), TestFixStatus: types.TestFixNotTested,
		}
		if _, err := errorLogRepo.Create(ctx, nil, []*types.ErrorLog{logEntry}); err != nil {
			t.Fatalf("seeding error log failed: %v", err)
		}
	}

	page, err := svc.ListErrors(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListErrors returned error: %v", err)
	}
	if len(page.Errors) != 2 {
		t.Errorf("page size = %d, want 2", len(page.Errors))
	}
	if page.Pagination.Total != 5 || page.Pagination.Pages != 3 {
		t.Errorf("pagination = %+v, want total 5 pages 3", page.Pagination)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("users = %d, want 1", len(users))
	}
}
