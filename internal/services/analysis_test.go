package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/gate"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

type fakeOracle struct {
	response string
	err      error
	calls    int
}

func (f *fakeOracle) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type analysisFixture struct {
	db        *gorm.DB
	log       *logger.Logger
	user      *types.User
	oracle    *fakeOracle
	errorLogs repos.ErrorLogRepo
	scores    repos.SkillScoreRepo
	svc       AnalysisService
	quizzes   QuizService
}

func newAnalysisFixture(t *testing.T, oracle *fakeOracle, aiLimit int) *analysisFixture {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db, log)

	userRepo := repos.NewUserRepo(db, log)
	errorLogRepo := repos.NewErrorLogRepo(db, log)
	scoreRepo := repos.NewSkillScoreRepo(db, log)
	scoreService := NewSkillScoreService(db, log, scoreRepo, userRepo)

	requestGate := gate.New(log, gate.NewMemoryCounter(),
		gate.Bucket{Name: gate.BucketAI, Limit: aiLimit, Window: time.Minute},
	)

	return &analysisFixture{
		db:        db,
		log:       log,
		user:      user,
		oracle:    oracle,
		errorLogs: errorLogRepo,
		scores:    scoreRepo,
		svc:       NewAnalysisService(db, log, requestGate, oracle, errorLogRepo, userRepo, scoreService),
		quizzes:   NewQuizService(db, log, requestGate, oracle, errorLogRepo, scoreService),
	}
}

func (f *analysisFixture) storedCounts(t *testing.T) (int64, int) {
	t.Helper()
	ctx := context.Background()
	logs, err := f.errorLogs.CountByUser(ctx, nil, f.user.ID)
	if err != nil {
		t.Fatalf("CountByUser returned error: %v", err)
	}
	entries, err := f.scores.GetEntries(ctx, nil, f.user.ID, 100)
	if err != nil {
		t.Fatalf("GetEntries returned error: %v", err)
	}
	return logs, len(entries)
}

func TestAnalyzePersistsRecordAndScore(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 10)

	result, err := f.svc.Analyze(ctx, f.user.ID, "TypeError: cannot read properties of undefined", "error_message", "", "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.ErrorLogID == uuid.Nil {
		t.Fatal("result carries no error log id")
	}
	if result.UpdatedSkillScore != 3 {
		t.Errorf("updated score = %d, want 3", result.UpdatedSkillScore)
	}
	if result.Difficulty != "easy" {
		t.Errorf("difficulty = %q, want easy", result.Difficulty)
	}

	logs, entries := f.storedCounts(t)
	if logs != 1 {
		t.Errorf("stored error logs = %d, want 1", logs)
	}
	if entries != 1 {
		t.Errorf("score history entries = %d, want 1", entries)
	}

	stored, err := f.errorLogs.GetByIDForUser(ctx, nil, result.ErrorLogID, f.user.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored record lookup failed: %v", err)
	}
	if stored.Difficulty != "easy" || stored.SkillScoreDelta != 3 {
		t.Errorf("stored record = difficulty %q delta %d", stored.Difficulty, stored.SkillScoreDelta)
	}
	if stored.TestFixStatus != types.TestFixNotTested {
		t.Errorf("test fix status = %q, want not_tested", stored.TestFixStatus)
	}
}

func TestAnalyzeOracleFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{err: apierr.OracleUnavailable(apierr.OracleCauseTimeout, fmt.Errorf("deadline exceeded"))}, 10)

	_, err := f.svc.Analyze(ctx, f.user.ID, "panic: runtime error", "error_message", "", "")
	if !apierr.Is(err, apierr.CodeOracleUnavailable) {
		t.Fatalf("expected oracle_unavailable, got %v", err)
	}

	logs, entries := f.storedCounts(t)
	if logs != 0 || entries != 0 {
		t.Errorf("failed analysis left traces: %d logs, %d entries", logs, entries)
	}
}

func TestAnalyzeMalformedOutputLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: "I am terribly sorry but here is an essay instead"}, 10)

	_, err := f.svc.Analyze(ctx, f.user.ID, "panic: runtime error", "error_message", "", "")
	if !apierr.Is(err, apierr.CodeOracleMalformed) {
		t.Fatalf("expected oracle_malformed_output, got %v", err)
	}

	logs, entries := f.storedCounts(t)
	if logs != 0 || entries != 0 {
		t.Errorf("malformed analysis left traces: %d logs, %d entries", logs, entries)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 10)

	tests := []struct {
		name      string
		input     string
		errorType string
		level     string
		language  string
	}{
		{"empty input", "  ", "error_message", "", ""},
		{"bad error type", "boom", "screenshot", "", ""},
		{"bad level", "boom", "error_message", "wizard", ""},
		{"bad language", "boom", "error_message", "", "klingon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Analyze(ctx, f.user.ID, tt.input, tt.errorType, tt.level, tt.language)
			if !apierr.Is(err, apierr.CodeValidationFailed) {
				t.Fatalf("expected validation_failed, got %v", err)
			}
		})
	}
	if f.oracle.calls != 0 {
		t.Errorf("oracle invoked %d times for invalid requests, want 0", f.oracle.calls)
	}
}

func TestAnalyzeGateRejection(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 1)

	if _, err := f.svc.Analyze(ctx, f.user.ID, "first error", "error_message", "", ""); err != nil {
		t.Fatalf("first analyze returned error: %v", err)
	}

	_, err := f.svc.Analyze(ctx, f.user.ID, "second error", "error_message", "", "")
	if !apierr.Is(err, apierr.CodeRateLimited) {
		t.Fatalf("expected rate_limited, got %v", err)
	}
	ae := apierr.From(err)
	if ae.RetryAfter <= 0 {
		t.Errorf("rejection carries no retry-after: %v", ae.RetryAfter)
	}
	if f.oracle.calls != 1 {
		t.Errorf("oracle invoked %d times, want 1 (rejected call must not reach it)", f.oracle.calls)
	}

	logs, _ := f.storedCounts(t)
	if logs != 1 {
		t.Errorf("stored error logs = %d, want 1", logs)
	}
}

func TestTestFixAnnotatesRecord(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 10)

	result, err := f.svc.Analyze(ctx, f.user.ID, "TypeError: cannot read properties of undefined", "error_message", "", "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	verdict, err := f.svc.TestFix(ctx, f.user.ID, result.ErrorLogID, "if (user != null) { console.log(user.name); } // guard against undefined access before reading")
	if err != nil {
		t.Fatalf("TestFix returned error: %v", err)
	}
	if verdict.Status != types.TestFixLikelyFixed && verdict.Status != types.TestFixStillFailing {
		t.Fatalf("unexpected verdict status %q", verdict.Status)
	}

	stored, err := f.errorLogs.GetByIDForUser(ctx, nil, result.ErrorLogID, f.user.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored record lookup failed: %v", err)
	}
	if stored.TestFixStatus != verdict.Status {
		t.Errorf("stored status = %q, verdict = %q", stored.TestFixStatus, verdict.Status)
	}
}

func TestTestFixUnknownRecord(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 10)

	_, err := f.svc.TestFix(ctx, f.user.ID, uuid.New(), "some fix")
	if !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestHistoryPaginates(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 100)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Analyze(ctx, f.user.ID, fmt.Sprintf("error %d", i), "error_message", "", ""); err != nil {
			t.Fatalf("analyze %d returned error: %v", i, err)
		}
	}

	page, err := f.svc.History(ctx, f.user.ID, 1, 2)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(page.ErrorLogs) != 2 {
		t.Errorf("page 1 size = %d, want 2", len(page.ErrorLogs))
	}
	if page.Pagination.Total != 3 || page.Pagination.Pages != 2 {
		t.Errorf("pagination = %+v, want total 3 pages 2", page.Pagination)
	}

	page2, err := f.svc.History(ctx, f.user.ID, 2, 2)
	if err != nil {
		t.Fatalf("History page 2 returned error: %v", err)
	}
	if len(page2.ErrorLogs) != 1 {
		t.Errorf("page 2 size = %d, want 1", len(page2.ErrorLogs))
	}
}

func TestHistoryReturnsSummaries(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 100)

	result, err := f.svc.Analyze(ctx, f.user.ID, "TypeError: x is undefined", "error_message", "", "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	page, err := f.svc.History(ctx, f.user.ID, 1, 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(page.ErrorLogs) != 1 {
		t.Fatalf("history size = %d, want 1", len(page.ErrorLogs))
	}

	summary := page.ErrorLogs[0]
	if summary.ID != result.ErrorLogID {
		t.Errorf("summary id = %s, want %s", summary.ID, result.ErrorLogID)
	}
	if summary.ErrorInput != "TypeError: x is undefined" {
		t.Errorf("error input = %q", summary.ErrorInput)
	}
	if summary.ErrorType != "error_message" {
		t.Errorf("error type = %q", summary.ErrorType)
	}
	if summary.Difficulty != "easy" {
		t.Errorf("difficulty = %q, want easy", summary.Difficulty)
	}
	if summary.ErrorExplanation != "You tried to read a property of undefined." {
		t.Errorf("error explanation = %q", summary.ErrorExplanation)
	}
	if summary.TestFixStatus != types.TestFixNotTested {
		t.Errorf("test fix status = %q, want %q", summary.TestFixStatus, types.TestFixNotTested)
	}
	if summary.CreatedAt.IsZero() {
		t.Error("summary carries no created_at")
	}
}

func TestHistoryIsScopedToUser(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 100)
	other := createTestUser(t, f.db, f.log)

	if _, err := f.svc.Analyze(ctx, f.user.ID, "mine", "error_message", "", ""); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	page, err := f.svc.History(ctx, other.ID, 1, 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(page.ErrorLogs) != 0 {
		t.Errorf("other user sees %d records, want 0", len(page.ErrorLogs))
	}
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t, &fakeOracle{response: validAnalysisJSON()}, 100)
	other := createTestUser(t, f.db, f.log)

	result, err := f.svc.Analyze(ctx, f.user.ID, "mine", "error_message", "", "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if _, err := f.svc.GetByID(ctx, other.ID, result.ErrorLogID); !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found for foreign record, got %v", err)
	}
	if _, err := f.svc.GetByID(ctx, f.user.ID, result.ErrorLogID); err != nil {
		t.Fatalf("owner lookup returned error: %v", err)
	}
}
