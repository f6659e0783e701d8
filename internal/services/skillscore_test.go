package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{130, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestQuizPercentage(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{5, 5, 100},
		{3, 5, 60},
		{2, 3, 67},
		{1, 3, 33},
		{0, 5, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := QuizPercentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("QuizPercentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestQuizDelta(t *testing.T) {
	tests := []struct {
		percentage, want int
	}{
		{100, 10},
		{95, 9},
		{90, 8},
		{89, 6},
		{80, 6},
		{70, 5},
		{69, 3},
		{60, 3},
		{50, 2},
		{49, 1},
		{30, 1},
		{29, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := QuizDelta(tt.percentage); got != tt.want {
			t.Errorf("QuizDelta(%d) = %d, want %d", tt.percentage, got, tt.want)
		}
	}
}

func newScoreService(t *testing.T) (SkillScoreService, repos.SkillScoreRepo, repos.UserRepo, *types.User) {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db, log)
	scoreRepo := repos.NewSkillScoreRepo(db, log)
	userRepo := repos.NewUserRepo(db, log)
	return NewSkillScoreService(db, log, scoreRepo, userRepo), scoreRepo, userRepo, user
}

func TestApplyAnalysisCreatesScoreAndEntry(t *testing.T) {
	ctx := context.Background()
	svc, scoreRepo, userRepo, user := newScoreService(t)

	newScore, err := svc.ApplyAnalysis(ctx, user.ID, uuid.New(), 5, types.DifficultyMedium)
	if err != nil {
		t.Fatalf("ApplyAnalysis returned error: %v", err)
	}
	if newScore != 5 {
		t.Errorf("new score = %d, want 5", newScore)
	}

	score, err := scoreRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || score == nil {
		t.Fatalf("score row missing after apply: %v", err)
	}
	if score.CurrentScore != 5 {
		t.Errorf("stored score = %d, want 5", score.CurrentScore)
	}
	if score.TotalErrorsAnalyzed != 1 {
		t.Errorf("total errors analyzed = %d, want 1", score.TotalErrorsAnalyzed)
	}
	if score.ErrorsMedium != 1 {
		t.Errorf("medium counter = %d, want 1", score.ErrorsMedium)
	}

	entries, err := scoreRepo.GetEntries(ctx, nil, user.ID, 10)
	if err != nil {
		t.Fatalf("GetEntries returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Score != 5 || entries[0].Source != types.ScoreSourceAnalysis {
		t.Errorf("entry = %+v, want score 5 source analysis", entries[0])
	}

	users, err := userRepo.GetByIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil || len(users) == 0 {
		t.Fatalf("user lookup failed: %v", err)
	}
	if users[0].SkillScore != 5 {
		t.Errorf("user mirror score = %d, want 5", users[0].SkillScore)
	}
}

func TestApplyAnalysisIsIdempotentPerErrorLog(t *testing.T) {
	ctx := context.Background()
	svc, scoreRepo, _, user := newScoreService(t)
	errorLogID := uuid.New()

	first, err := svc.ApplyAnalysis(ctx, user.ID, errorLogID, 5, types.DifficultyEasy)
	if err != nil {
		t.Fatalf("first apply returned error: %v", err)
	}
	second, err := svc.ApplyAnalysis(ctx, user.ID, errorLogID, 5, types.DifficultyEasy)
	if err != nil {
		t.Fatalf("second apply returned error: %v", err)
	}
	if second != first {
		t.Errorf("second apply changed score: %d -> %d", first, second)
	}

	score, err := scoreRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || score == nil {
		t.Fatalf("score lookup failed: %v", err)
	}
	if score.TotalErrorsAnalyzed != 1 {
		t.Errorf("total errors analyzed = %d, want 1", score.TotalErrorsAnalyzed)
	}
	entries, err := scoreRepo.GetEntries(ctx, nil, user.ID, 10)
	if err != nil {
		t.Fatalf("GetEntries returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(entries))
	}
}

func TestApplyAnalysisClampsAtBounds(t *testing.T) {
	ctx := context.Background()
	svc, _, _, user := newScoreService(t)

	newScore, err := svc.ApplyAnalysis(ctx, user.ID, uuid.New(), -5, types.DifficultyEasy)
	if err != nil {
		t.Fatalf("ApplyAnalysis returned error: %v", err)
	}
	if newScore != 0 {
		t.Errorf("score after negative delta at floor = %d, want 0", newScore)
	}
}

func TestConcurrentAppliesBothLand(t *testing.T) {
	ctx := context.Background()
	svc, scoreRepo, userRepo, user := newScoreService(t)

	// Five analyses bring the score to 50.
	for i := 0; i < 5; i++ {
		if _, err := svc.ApplyAnalysis(ctx, user.ID, uuid.New(), 10, types.DifficultyMedium); err != nil {
			t.Fatalf("seed apply %d returned error: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, delta := range []int{5, 3} {
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			if _, err := svc.ApplyAnalysis(ctx, user.ID, uuid.New(), delta, types.DifficultyMedium); err != nil {
				errs <- err
			}
		}(delta)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent apply returned error: %v", err)
	}

	score, err := scoreRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || score == nil {
		t.Fatalf("score lookup failed: %v", err)
	}
	if score.CurrentScore != 58 {
		t.Errorf("final score = %d, want 58", score.CurrentScore)
	}
	if score.TotalErrorsAnalyzed != 7 {
		t.Errorf("total errors analyzed = %d, want 7", score.TotalErrorsAnalyzed)
	}

	entries, err := scoreRepo.GetEntries(ctx, nil, user.ID, 100)
	if err != nil {
		t.Fatalf("GetEntries returned error: %v", err)
	}
	if len(entries) != 7 {
		t.Errorf("history entries = %d, want 7", len(entries))
	}

	users, err := userRepo.GetByIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil || len(users) == 0 {
		t.Fatalf("user lookup failed: %v", err)
	}
	if users[0].SkillScore != 58 {
		t.Errorf("user mirror score = %d, want 58", users[0].SkillScore)
	}
}

func TestQuizCompletionAppliesBandDelta(t *testing.T) {
	ctx := context.Background()
	svc, scoreRepo, _, user := newScoreService(t)

	// Analysis first brings the score to 5, then a 3/5 quiz adds the
	// 60 percent band delta of 3.
	if _, err := svc.ApplyAnalysis(ctx, user.ID, uuid.New(), 5, types.DifficultyMedium); err != nil {
		t.Fatalf("ApplyAnalysis returned error: %v", err)
	}

	quizLogID := uuid.New()
	result, applied, err := svc.ApplyQuizCompletion(ctx, user.ID, quizLogID, 3, 5)
	if err != nil {
		t.Fatalf("ApplyQuizCompletion returned error: %v", err)
	}
	if !applied {
		t.Fatal("first completion was not applied")
	}
	if result.Delta != 3 {
		t.Errorf("quiz delta = %d, want 3", result.Delta)
	}
	if result.NewScore != 8 {
		t.Errorf("score after quiz = %d, want 8", result.NewScore)
	}

	score, err := scoreRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || score == nil {
		t.Fatalf("score lookup failed: %v", err)
	}
	if score.TotalQuizzesCompleted != 1 {
		t.Errorf("quizzes completed = %d, want 1", score.TotalQuizzesCompleted)
	}
	if score.TotalErrorsAnalyzed != 1 {
		t.Errorf("errors analyzed = %d, want 1", score.TotalErrorsAnalyzed)
	}
}

func TestQuizCompletionAppliesOnlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, scoreRepo, _, user := newScoreService(t)
	quizLogID := uuid.New()

	first, applied, err := svc.ApplyQuizCompletion(ctx, user.ID, quizLogID, 5, 5)
	if err != nil {
		t.Fatalf("first completion returned error: %v", err)
	}
	if !applied {
		t.Fatal("first completion was not applied")
	}
	if first.Delta != 10 {
		t.Errorf("perfect quiz delta = %d, want 10", first.Delta)
	}

	second, applied, err := svc.ApplyQuizCompletion(ctx, user.ID, quizLogID, 5, 5)
	if err != nil {
		t.Fatalf("second completion returned error: %v", err)
	}
	if applied {
		t.Fatal("second completion should not be applied")
	}
	if second.Delta != 0 {
		t.Errorf("second completion delta = %d, want 0", second.Delta)
	}
	if second.NewScore != first.NewScore {
		t.Errorf("second completion moved score: %d -> %d", first.NewScore, second.NewScore)
	}

	score, err := scoreRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || score == nil {
		t.Fatalf("score lookup failed: %v", err)
	}
	if score.TotalQuizzesCompleted != 1 {
		t.Errorf("quizzes completed = %d, want 1", score.TotalQuizzesCompleted)
	}
}

func TestGetWithHistoryCreatesRowOnFirstRead(t *testing.T) {
	ctx := context.Background()
	svc, _, _, user := newScoreService(t)

	score, entries, err := svc.GetWithHistory(ctx, user.ID, 30)
	if err != nil {
		t.Fatalf("GetWithHistory returned error: %v", err)
	}
	if score.CurrentScore != 0 {
		t.Errorf("fresh score = %d, want 0", score.CurrentScore)
	}
	if len(entries) != 0 {
		t.Errorf("fresh history = %d entries, want 0", len(entries))
	}
}
