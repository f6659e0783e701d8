package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

type DifficultyCount struct {
	Difficulty string `json:"difficulty"`
	Count      int64  `json:"count"`
}

type DailyCount struct {
	Day   string `json:"date"`
	Count int64  `json:"errorsAnalyzed"`
}

type ErrorLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, logs []*types.ErrorLog) ([]*types.ErrorLog, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.ErrorLog, error)
	// ListByUser returns history rows without the quiz blobs; only the
	// columns the history projection needs are selected.
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, offset, limit int) ([]*types.ErrorLog, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	ListAll(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.ErrorLog, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// MarkQuizCompleted stamps quiz_completed_at only if it is still unset,
	// reporting whether this call won the stamp.
	MarkQuizCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, completedAt time.Time) (bool, error)
	CountByDifficulty(ctx context.Context, tx *gorm.DB) ([]DifficultyCount, error)
	DailyCountsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]DailyCount, error)
}

type errorLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewErrorLogRepo(db *gorm.DB, baseLog *logger.Logger) ErrorLogRepo {
	repoLog := baseLog.With("repo", "ErrorLogRepo")
	return &errorLogRepo{db: db, log: repoLog}
}

func (r *errorLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.ErrorLog) ([]*types.ErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(logs) == 0 {
		return []*types.ErrorLog{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *errorLogRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.ErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ErrorLog
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *errorLogRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, offset, limit int) ([]*types.ErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ErrorLog
	if err := transaction.WithContext(ctx).
		Select("id", "user_id", "error_input", "error_type", "analysis", "difficulty", "test_fix_status", "test_fix_message", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *errorLogRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ErrorLog{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *errorLogRepo) ListAll(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.ErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ErrorLog
	if err := transaction.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *errorLogRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ErrorLog{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *errorLogRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.ErrorLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *errorLogRepo) MarkQuizCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, completedAt time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.ErrorLog{}).
		Where("id = ? AND quiz_completed_at IS NULL", id).
		Update("quiz_completed_at", completedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *errorLogRepo) CountByDifficulty(ctx context.Context, tx *gorm.DB) ([]DifficultyCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []DifficultyCount
	if err := transaction.WithContext(ctx).
		Model(&types.ErrorLog{}).
		Select("difficulty, COUNT(*) AS count").
		Where("difficulty <> ''").
		Group("difficulty").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *errorLogRepo) DailyCountsSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]DailyCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []DailyCount
	if err := transaction.WithContext(ctx).
		Model(&types.ErrorLog{}).
		Select("CAST(created_at AS DATE) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("CAST(created_at AS DATE)").
		Order("day ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
