package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/gate"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

// AnalysisResult is the client-facing outcome of one analysis call.
type AnalysisResult struct {
	types.AnalysisPayload
	ErrorLogID        uuid.UUID `json:"errorLogId"`
	UpdatedSkillScore int       `json:"updatedSkillScore"`
}

// ErrorLogSummary is the history projection: the analysis payload and quiz
// blobs are left out, only the explanation survives from the analysis.
type ErrorLogSummary struct {
	ID               uuid.UUID `json:"id"`
	ErrorInput       string    `json:"error_input"`
	ErrorType        string    `json:"error_type"`
	Difficulty       string    `json:"difficulty"`
	ErrorExplanation string    `json:"error_explanation"`
	TestFixStatus    string    `json:"test_fix_status"`
	TestFixMessage   string    `json:"test_fix_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type HistoryPage struct {
	ErrorLogs  []ErrorLogSummary `json:"errorLogs"`
	Pagination Pagination        `json:"pagination"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func sanitizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func totalPages(total int64, limit int) int64 {
	return (total + int64(limit) - 1) / int64(limit)
}

type AnalysisService interface {
	// Analyze runs the whole pipeline: admit through the gate, invoke the
	// oracle, normalize, persist, update the score. Any failure before
	// persistence leaves zero stored side effects.
	Analyze(ctx context.Context, userID uuid.UUID, errorInput, errorType, experienceLevel, language string) (*AnalysisResult, error)
	TestFix(ctx context.Context, userID, errorLogID uuid.UUID, fixCode string) (*TestFixResult, error)
	History(ctx context.Context, userID uuid.UUID, page, limit int) (*HistoryPage, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*types.ErrorLog, error)
}

type analysisService struct {
	db        *gorm.DB
	log       *logger.Logger
	requests  *gate.Gate
	oracle    OracleClient
	errorLogs repos.ErrorLogRepo
	users     repos.UserRepo
	scores    SkillScoreService
}

func NewAnalysisService(
	db *gorm.DB,
	log *logger.Logger,
	requests *gate.Gate,
	oracle OracleClient,
	errorLogs repos.ErrorLogRepo,
	users repos.UserRepo,
	scores SkillScoreService,
) AnalysisService {
	return &analysisService{
		db:        db,
		log:       log.With("service", "AnalysisService"),
		requests:  requests,
		oracle:    oracle,
		errorLogs: errorLogs,
		users:     users,
		scores:    scores,
	}
}

func (s *analysisService) Analyze(ctx context.Context, userID uuid.UUID, errorInput, errorType, experienceLevel, language string) (*AnalysisResult, error) {
	errorInput = strings.TrimSpace(errorInput)
	if errorInput == "" {
		return nil, apierr.ValidationFailed("errorInput", "required")
	}
	if !types.IsValidErrorType(errorType) {
		return nil, apierr.ValidationFailed("errorType", "must be one of error_message, stack_trace, code_snippet")
	}

	decision, err := s.requests.Admit(ctx, gate.BucketAI, userID.String())
	if err != nil {
		// Counter trouble should not take analysis down with it.
		s.log.Warn("Gate counter unavailable, admitting request", "error", err)
	} else if !decision.Allowed {
		return nil, apierr.GateRejected(decision.RetryAfter)
	}

	users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user")
	}
	user := users[0]

	if experienceLevel == "" {
		experienceLevel = user.ExperienceLevel
	}
	if language == "" {
		language = user.Language
	}
	if !types.IsValidExperienceLevel(experienceLevel) {
		return nil, apierr.ValidationFailed("experienceLevel", "must be one of beginner, intermediate, experienced")
	}
	if !types.IsValidLanguage(language) {
		return nil, apierr.ValidationFailed("language", "unsupported language")
	}

	s.log.Info("Analyzing error",
		"user_id", userID,
		"error_type", errorType,
		"input_length", len(errorInput),
		"experience_level", experienceLevel,
		"language", language,
	)

	prompt := buildAnalysisPrompt(errorInput, errorType, experienceLevel, language)

	raw, err := s.oracle.Generate(ctx, prompt)
	if err != nil {
		// Nothing was persisted; the whole request is a no-op.
		return nil, err
	}

	payload, err := NormalizeAnalysis(raw)
	if err != nil {
		return nil, err
	}

	analysisJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis payload: %w", err)
	}

	errorLog := &types.ErrorLog{
		ID:              uuid.New(),
		UserID:          userID,
		ErrorInput:      errorInput,
		ErrorType:       errorType,
		Analysis:        datatypes.JSON(analysisJSON),
		Difficulty:      payload.Difficulty,
		SkillScoreDelta: payload.SkillScoreDelta,
		TestFixStatus:   types.TestFixNotTested,
	}
	if _, err := s.errorLogs.Create(ctx, nil, []*types.ErrorLog{errorLog}); err != nil {
		return nil, apierr.StorageUnavailable(err)
	}

	// From here the record exists; score application is idempotent per
	// record, so a storage hiccup can be retried without double counting.
	newScore, err := s.scores.ApplyAnalysis(ctx, userID, errorLog.ID, payload.SkillScoreDelta, payload.Difficulty)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		AnalysisPayload:   *payload,
		ErrorLogID:        errorLog.ID,
		UpdatedSkillScore: newScore,
	}, nil
}

func (s *analysisService) TestFix(ctx context.Context, userID, errorLogID uuid.UUID, fixCode string) (*TestFixResult, error) {
	if strings.TrimSpace(fixCode) == "" {
		return nil, apierr.ValidationFailed("fixCode", "required")
	}

	errorLog, err := s.errorLogs.GetByIDForUser(ctx, nil, errorLogID, userID)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if errorLog == nil {
		return nil, apierr.NotFound("error log")
	}

	result := TestFix(errorLog.ErrorInput, fixCode)

	// The verdict only annotates the record; a write failure is logged, not
	// surfaced, because the analysis itself is untouched.
	if err := s.errorLogs.UpdateFields(ctx, nil, errorLogID, map[string]interface{}{
		"test_fix_status":  result.Status,
		"test_fix_message": result.Message,
	}); err != nil {
		s.log.Warn("Failed to annotate test fix result", "error_log_id", errorLogID, "error", err)
	}

	return &result, nil
}

func (s *analysisService) History(ctx context.Context, userID uuid.UUID, page, limit int) (*HistoryPage, error) {
	page, limit = sanitizePage(page, limit)
	offset := (page - 1) * limit

	logs, err := s.errorLogs.ListByUser(ctx, nil, userID, offset, limit)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	total, err := s.errorLogs.CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}

	summaries := make([]ErrorLogSummary, 0, len(logs))
	for _, errorLog := range logs {
		var analysis struct {
			ErrorExplanation string `json:"error_explanation"`
		}
		if len(errorLog.Analysis) > 0 {
			_ = json.Unmarshal(errorLog.Analysis, &analysis)
		}
		summaries = append(summaries, ErrorLogSummary{
			ID:               errorLog.ID,
			ErrorInput:       errorLog.ErrorInput,
			ErrorType:        errorLog.ErrorType,
			Difficulty:       errorLog.Difficulty,
			ErrorExplanation: analysis.ErrorExplanation,
			TestFixStatus:    errorLog.TestFixStatus,
			TestFixMessage:   errorLog.TestFixMessage,
			CreatedAt:        errorLog.CreatedAt,
		})
	}

	return &HistoryPage{
		ErrorLogs: summaries,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: totalPages(total, limit),
		},
	}, nil
}

func (s *analysisService) GetByID(ctx context.Context, userID, id uuid.UUID) (*types.ErrorLog, error) {
	errorLog, err := s.errorLogs.GetByIDForUser(ctx, nil, id, userID)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if errorLog == nil {
		return nil, apierr.NotFound("error log")
	}
	return errorLog, nil
}
