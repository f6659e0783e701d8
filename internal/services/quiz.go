package services

import (
	"context"
	"encoding/json"
	"fmt"
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

const defaultQuizQuestions = 5

type QuizCompletionResult struct {
	QuizScore         int `json:"quizScore"`
	UpdatedSkillScore int `json:"updatedSkillScore"`
	SkillScoreDelta   int `json:"skillScoreDelta"`
}

type QuizService interface {
	// Generate builds quiz questions from a record's stored analysis via the
	// oracle and attaches them to the record. Goes through the AI gate.
	Generate(ctx context.Context, userID, errorLogID uuid.UUID, numQuestions int) ([]types.QuizQuestion, error)
	// SubmitAnswer appends one answer event to the record.
	SubmitAnswer(ctx context.Context, userID, errorLogID uuid.UUID, questionIndex, selectedAnswer int, isCorrect bool) error
	// Complete applies the quiz-completion score event at most once per
	// record; a second completion reports already_completed.
	Complete(ctx context.Context, userID, errorLogID uuid.UUID, correct, total int) (*QuizCompletionResult, error)
}

type quizService struct {
	db        *gorm.DB
	log       *logger.Logger
	requests  *gate.Gate
	oracle    OracleClient
	errorLogs repos.ErrorLogRepo
	scores    SkillScoreService
}

func NewQuizService(
	db *gorm.DB,
	log *logger.Logger,
	requests *gate.Gate,
	oracle OracleClient,
	errorLogs repos.ErrorLogRepo,
	scores SkillScoreService,
) QuizService {
	return &quizService{
		db:        db,
		log:       log.With("service", "QuizService"),
		requests:  requests,
		oracle:    oracle,
		errorLogs: errorLogs,
		scores:    scores,
	}
}

func (s *quizService) Generate(ctx context.Context, userID, errorLogID uuid.UUID, numQuestions int) ([]types.QuizQuestion, error) {
	if numQuestions <= 0 {
		numQuestions = defaultQuizQuestions
	}

	decision, err := s.requests.Admit(ctx, gate.BucketAI, userID.String())
	if err != nil {
		s.log.Warn("Gate counter unavailable, admitting request", "error", err)
	} else if !decision.Allowed {
		return nil, apierr.GateRejected(decision.RetryAfter)
	}

	errorLog, err := s.errorLogs.GetByIDForUser(ctx, nil, errorLogID, userID)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if errorLog == nil {
		return nil, apierr.NotFound("error log")
	}

	var analysis types.AnalysisPayload
	if err := json.Unmarshal(errorLog.Analysis, &analysis); err != nil {
		return nil, fmt.Errorf("unmarshal stored analysis: %w", err)
	}

	raw, err := s.oracle.Generate(ctx, buildQuizPrompt(&analysis, numQuestions))
	if err != nil {
		return nil, err
	}

	questions, err := NormalizeQuiz(raw, numQuestions)
	if err != nil {
		return nil, err
	}

	quiz := types.Quiz{Questions: questions, CreatedAt: time.Now()}
	quizJSON, err := json.Marshal(quiz)
	if err != nil {
		return nil, fmt.Errorf("marshal quiz: %w", err)
	}
	if err := s.errorLogs.UpdateFields(ctx, nil, errorLogID, map[string]interface{}{
		"quiz": datatypes.JSON(quizJSON),
	}); err != nil {
		return nil, apierr.StorageUnavailable(err)
	}

	return questions, nil
}

func (s *quizService) SubmitAnswer(ctx context.Context, userID, errorLogID uuid.UUID, questionIndex, selectedAnswer int, isCorrect bool) error {
	errorLog, err := s.errorLogs.GetByIDForUser(ctx, nil, errorLogID, userID)
	if err != nil {
		return apierr.StorageUnavailable(err)
	}
	if errorLog == nil {
		return apierr.NotFound("error log")
	}

	now := time.Now()
	event := types.QuizResult{
		QuestionIndex:  &questionIndex,
		SelectedAnswer: &selectedAnswer,
		IsCorrect:      &isCorrect,
		Timestamp:      &now,
	}
	return s.appendQuizResult(ctx, errorLog, event)
}

func (s *quizService) Complete(ctx context.Context, userID, errorLogID uuid.UUID, correct, total int) (*QuizCompletionResult, error) {
	if total <= 0 {
		return nil, apierr.ValidationFailed("totalQuestions", "must be positive")
	}
	if correct < 0 || correct > total {
		return nil, apierr.ValidationFailed("score", "must be between 0 and totalQuestions")
	}

	errorLog, err := s.errorLogs.GetByIDForUser(ctx, nil, errorLogID, userID)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if errorLog == nil {
		return nil, apierr.NotFound("error log")
	}
	if errorLog.QuizCompletedAt != nil {
		return nil, apierr.AlreadyCompleted()
	}

	// The score event is the idempotence authority: the history unique index
	// lets exactly one concurrent completion through.
	result, applied, err := s.scores.ApplyQuizCompletion(ctx, userID, errorLogID, correct, total)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apierr.AlreadyCompleted()
	}

	percentage := QuizPercentage(correct, total)
	now := time.Now()
	if won, err := s.errorLogs.MarkQuizCompleted(ctx, nil, errorLogID, now); err != nil {
		s.log.Warn("Failed to stamp quiz completion", "error_log_id", errorLogID, "error", err)
	} else if !won {
		s.log.Warn("Quiz completion stamp already present after score application", "error_log_id", errorLogID)
	}

	event := types.QuizResult{
		FinalScore:      &percentage,
		CorrectAnswers:  &correct,
		TotalQuestions:  &total,
		CompletedAt:     &now,
		SkillScoreDelta: &result.Delta,
	}
	if err := s.appendQuizResult(ctx, errorLog, event); err != nil {
		s.log.Warn("Failed to append quiz completion event", "error_log_id", errorLogID, "error", err)
	}

	return &QuizCompletionResult{
		QuizScore:         percentage,
		UpdatedSkillScore: result.NewScore,
		SkillScoreDelta:   result.Delta,
	}, nil
}

func (s *quizService) appendQuizResult(ctx context.Context, errorLog *types.ErrorLog, event types.QuizResult) error {
	var results []types.QuizResult
	if len(errorLog.QuizResults) > 0 {
		if err := json.Unmarshal(errorLog.QuizResults, &results); err != nil {
			s.log.Warn("Resetting unreadable quiz results", "error_log_id", errorLog.ID, "error", err)
			results = nil
		}
	}
	results = append(results, event)

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal quiz results: %w", err)
	}
	if err := s.errorLogs.UpdateFields(ctx, nil, errorLog.ID, map[string]interface{}{
		"quiz_results": datatypes.JSON(resultsJSON),
	}); err != nil {
		return apierr.StorageUnavailable(err)
	}
	return nil
}
