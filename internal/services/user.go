package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/normalization"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

const profileHistoryLimit = 30

// ScoreHistoryPoint is one entry of a user's score timeline, shaped for the
// frontend chart (score after the event plus what produced it).
type ScoreHistoryPoint struct {
	Score     string     `json:"score"`
	ScoreNum  int        `json:"score_num"`
	Source    string     `json:"source"`
	QuizScore *int       `json:"quiz_score,omitempty"`
	Date      time.Time  `json:"date"`
	ErrorID   *uuid.UUID `json:"error_id,omitempty"`
}

type SkillScoreDocument struct {
	CurrentScore          int                  `json:"current_score"`
	TotalErrorsAnalyzed   int                  `json:"total_errors_analyzed"`
	TotalQuizzesCompleted int                  `json:"total_quizzes_completed"`
	ErrorsByDifficulty    map[string]int       `json:"errors_by_difficulty"`
	LastUpdated           time.Time            `json:"last_updated"`
	History               []*ScoreHistoryPoint `json:"history"`
}

type UserProfile struct {
	User       types.PublicUser    `json:"user"`
	SkillScore *SkillScoreDocument `json:"skill_score"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	GetSkillScore(ctx context.Context, userID uuid.UUID) (*SkillScoreDocument, error)
	UpdateExperienceLevel(ctx context.Context, userID uuid.UUID, level string) (types.PublicUser, error)
	UpdateLanguage(ctx context.Context, userID uuid.UUID, language string) (types.PublicUser, error)
}

type userService struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	scores SkillScoreService
}

func NewUserService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, scores SkillScoreService) UserService {
	return &userService{
		db:     db,
		log:    log.With("service", "UserService"),
		users:  users,
		scores: scores,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := us.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	doc, err := us.GetSkillScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{User: user.Public(), SkillScore: doc}, nil
}

func (us *userService) GetSkillScore(ctx context.Context, userID uuid.UUID) (*SkillScoreDocument, error) {
	score, entries, err := us.scores.GetWithHistory(ctx, userID, profileHistoryLimit)
	if err != nil {
		return nil, err
	}

	history := make([]*ScoreHistoryPoint, 0, len(entries))
	for _, entry := range entries {
		point := &ScoreHistoryPoint{
			Score:     fmt.Sprintf("%d", entry.Score),
			ScoreNum:  entry.Score,
			Source:    entry.Source,
			QuizScore: entry.QuizScore,
			Date:      entry.CreatedAt,
			ErrorID:   entry.ErrorLogID,
		}
		history = append(history, point)
	}

	return &SkillScoreDocument{
		CurrentScore:          score.CurrentScore,
		TotalErrorsAnalyzed:   score.TotalErrorsAnalyzed,
		TotalQuizzesCompleted: score.TotalQuizzesCompleted,
		ErrorsByDifficulty:    score.ErrorsByDifficulty(),
		LastUpdated:           score.LastUpdated,
		History:               history,
	}, nil
}

func (us *userService) UpdateExperienceLevel(ctx context.Context, userID uuid.UUID, level string) (types.PublicUser, error) {
	level = normalization.ParseInputString(level)
	if !types.IsValidExperienceLevel(level) {
		return types.PublicUser{}, apierr.ValidationFailed("experience_level", "must be beginner, intermediate or experienced")
	}
	return us.patchUser(ctx, userID, map[string]interface{}{"experience_level": level})
}

func (us *userService) UpdateLanguage(ctx context.Context, userID uuid.UUID, language string) (types.PublicUser, error) {
	language = normalization.ParseInputString(language)
	if !types.IsValidLanguage(language) {
		return types.PublicUser{}, apierr.ValidationFailed("language", "unsupported language")
	}
	return us.patchUser(ctx, userID, map[string]interface{}{"preferred_language": language})
}

func (us *userService) patchUser(ctx context.Context, userID uuid.UUID, updates map[string]interface{}) (types.PublicUser, error) {
	if err := us.users.UpdateFields(ctx, nil, userID, updates); err != nil {
		return types.PublicUser{}, apierr.StorageUnavailable(err)
	}
	user, err := us.getUser(ctx, userID)
	if err != nil {
		return types.PublicUser{}, err
	}
	return user.Public(), nil
}

func (us *userService) getUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := us.users.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user")
	}
	return users[0], nil
}
