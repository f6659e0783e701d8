package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

// Score update policy. Pure functions; the service below is the only writer
// of current_score.

func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// QuizPercentage is round(100 * correct / total).
func QuizPercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(correct)/float64(total)*100 + 0.5)
}

// QuizDelta maps an integer percentage onto the score delta step function:
// [90,100] -> 8..10, [70,90) -> 5..6, [50,70) -> 2..4, [30,50) -> 1,
// [0,30) -> 0. Bands scale linearly inside themselves.
func QuizDelta(percentage int) int {
	switch {
	case percentage >= 90:
		return 8 + (percentage-90)*2/10
	case percentage >= 70:
		return 5 + (percentage-70)/10
	case percentage >= 50:
		return 2 + (percentage-50)/10
	case percentage >= 30:
		return 1
	default:
		return 0
	}
}

const scoreCASRetries = 5

type QuizScoreResult struct {
	NewScore int
	Delta    int
}

type SkillScoreService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*types.SkillScore, error)
	GetWithHistory(ctx context.Context, userID uuid.UUID, historyLimit int) (*types.SkillScore, []*types.SkillScoreEntry, error)
	// ApplyAnalysis applies an analysis event exactly once per error log:
	// clamp the delta into the score, bump the analysis counters, append one
	// history entry. Re-applying the same event returns the settled score
	// without changing anything, which is what the partial-failure retry
	// path relies on.
	ApplyAnalysis(ctx context.Context, userID, errorLogID uuid.UUID, delta int, difficulty string) (int, error)
	// ApplyQuizCompletion applies a quiz-completion event exactly once per
	// error log; the bool reports whether this call won the application.
	// Counters for analyzed errors are untouched.
	ApplyQuizCompletion(ctx context.Context, userID, errorLogID uuid.UUID, correct, total int) (*QuizScoreResult, bool, error)
}

type skillScoreService struct {
	db          *gorm.DB
	log         *logger.Logger
	skillScores repos.SkillScoreRepo
	users       repos.UserRepo
}

func NewSkillScoreService(db *gorm.DB, log *logger.Logger, skillScores repos.SkillScoreRepo, users repos.UserRepo) SkillScoreService {
	return &skillScoreService{
		db:          db,
		log:         log.With("service", "SkillScoreService"),
		skillScores: skillScores,
		users:       users,
	}
}

func (s *skillScoreService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*types.SkillScore, error) {
	score, err := s.skillScores.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if score != nil {
		return score, nil
	}

	score = newSkillScore(userID)
	if _, err := s.skillScores.Create(ctx, nil, []*types.SkillScore{score}); err != nil {
		// A concurrent first event may have created the row already.
		existing, getErr := s.skillScores.GetByUserID(ctx, nil, userID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, apierr.StorageUnavailable(err)
	}
	return score, nil
}

func (s *skillScoreService) GetWithHistory(ctx context.Context, userID uuid.UUID, historyLimit int) (*types.SkillScore, []*types.SkillScoreEntry, error) {
	score, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.skillScores.GetEntries(ctx, nil, userID, historyLimit)
	if err != nil {
		return nil, nil, apierr.StorageUnavailable(err)
	}
	return score, entries, nil
}

func (s *skillScoreService) ApplyAnalysis(ctx context.Context, userID, errorLogID uuid.UUID, delta int, difficulty string) (int, error) {
	newScore, _, err := s.applyEvent(ctx, userID, errorLogID, types.ScoreSourceAnalysis, delta, difficulty, nil)
	return newScore, err
}

func (s *skillScoreService) ApplyQuizCompletion(ctx context.Context, userID, errorLogID uuid.UUID, correct, total int) (*QuizScoreResult, bool, error) {
	percentage := QuizPercentage(correct, total)
	delta := QuizDelta(percentage)
	newScore, applied, err := s.applyEvent(ctx, userID, errorLogID, types.ScoreSourceQuiz, delta, "", &percentage)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		delta = 0
	}
	return &QuizScoreResult{NewScore: newScore, Delta: delta}, applied, nil
}

var errScoreConflict = errors.New("skill score version conflict")

// applyEvent runs the read-compute-conditional-update cycle in one
// transaction. The version CAS serializes concurrent events for the same
// user; the unique (error_log_id, source) history index makes each event
// apply at most once. Reports the resulting score and whether this call won
// the application.
func (s *skillScoreService) applyEvent(ctx context.Context, userID, errorLogID uuid.UUID, source string, delta int, difficulty string, quizScore *int) (int, bool, error) {
	var resultScore int
	var applied bool

	for attempt := 0; attempt < scoreCASRetries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			score, err := s.skillScores.GetByUserID(ctx, tx, userID)
			if err != nil {
				return err
			}
			if score == nil {
				score = newSkillScore(userID)
				if _, err := s.skillScores.Create(ctx, tx, []*types.SkillScore{score}); err != nil {
					return err
				}
			}

			exists, err := s.skillScores.EntryExists(ctx, tx, errorLogID, source)
			if err != nil {
				return err
			}
			if exists {
				resultScore = score.CurrentScore
				applied = false
				return nil
			}

			newScore := ClampScore(score.CurrentScore + delta)
			updates := map[string]interface{}{
				"current_score": newScore,
			}
			switch source {
			case types.ScoreSourceAnalysis:
				updates["total_errors_analyzed"] = score.TotalErrorsAnalyzed + 1
				switch difficulty {
				case types.DifficultyEasy:
					updates["errors_easy"] = score.ErrorsEasy + 1
				case types.DifficultyHard:
					updates["errors_hard"] = score.ErrorsHard + 1
				default:
					updates["errors_medium"] = score.ErrorsMedium + 1
				}
			case types.ScoreSourceQuiz:
				updates["total_quizzes_completed"] = score.TotalQuizzesCompleted + 1
			}

			won, err := s.skillScores.CompareAndUpdate(ctx, tx, score.ID, score.Version, updates)
			if err != nil {
				return err
			}
			if !won {
				return errScoreConflict
			}

			logID := errorLogID
			entry := &types.SkillScoreEntry{
				ID:           uuid.New(),
				SkillScoreID: score.ID,
				UserID:       userID,
				Score:        newScore,
				Source:       source,
				ErrorLogID:   &logID,
				QuizScore:    quizScore,
			}
			if err := s.skillScores.AppendEntry(ctx, tx, entry); err != nil {
				return err
			}

			// Mirror onto the user record the way the profile reads expect.
			if err := s.users.UpdateFields(ctx, tx, userID, map[string]interface{}{
				"skill_score": newScore,
			}); err != nil {
				return err
			}

			resultScore = newScore
			applied = true
			return nil
		})
		if err == nil {
			return resultScore, applied, nil
		}
		if errors.Is(err, errScoreConflict) {
			s.log.Debug("Skill score CAS conflict, retrying", "user_id", userID, "attempt", attempt+1)
			continue
		}
		return 0, false, apierr.StorageUnavailable(err)
	}

	return 0, false, apierr.StorageUnavailable(fmt.Errorf("skill score update contention for user %s", userID))
}

func newSkillScore(userID uuid.UUID) *types.SkillScore {
	return &types.SkillScore{
		ID:          uuid.New(),
		UserID:      userID,
		LastUpdated: time.Now(),
	}
}
