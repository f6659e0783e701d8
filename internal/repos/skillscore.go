package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

type SkillScoreRepo interface {
	Create(ctx context.Context, tx *gorm.DB, scores []*types.SkillScore) ([]*types.SkillScore, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.SkillScore, error)
	// CompareAndUpdate applies updates only if the stored version still
	// matches; it reports whether the row was won.
	CompareAndUpdate(ctx context.Context, tx *gorm.DB, scoreID uuid.UUID, version int64, updates map[string]interface{}) (bool, error)
	AppendEntry(ctx context.Context, tx *gorm.DB, entry *types.SkillScoreEntry) error
	EntryExists(ctx context.Context, tx *gorm.DB, errorLogID uuid.UUID, source string) (bool, error)
	GetEntries(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SkillScoreEntry, error)
	CountEntriesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	AverageCurrentScore(ctx context.Context, tx *gorm.DB) (float64, error)
}

type skillScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillScoreRepo(db *gorm.DB, baseLog *logger.Logger) SkillScoreRepo {
	repoLog := baseLog.With("repo", "SkillScoreRepo")
	return &skillScoreRepo{db: db, log: repoLog}
}

func (r *skillScoreRepo) Create(ctx context.Context, tx *gorm.DB, scores []*types.SkillScore) ([]*types.SkillScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(scores) == 0 {
		return []*types.SkillScore{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *skillScoreRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.SkillScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SkillScore
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *skillScoreRepo) CompareAndUpdate(ctx context.Context, tx *gorm.DB, scoreID uuid.UUID, version int64, updates map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates["version"] = version + 1
	updates["last_updated"] = time.Now()

	res := transaction.WithContext(ctx).
		Model(&types.SkillScore{}).
		Where("id = ? AND version = ?", scoreID, version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *skillScoreRepo) AppendEntry(ctx context.Context, tx *gorm.DB, entry *types.SkillScoreEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *skillScoreRepo) EntryExists(ctx context.Context, tx *gorm.DB, errorLogID uuid.UUID, source string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SkillScoreEntry{}).
		Where("error_log_id = ? AND source = ?", errorLogID, source).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetEntries returns the newest limit entries in chronological order.
func (r *skillScoreRepo) GetEntries(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SkillScoreEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SkillScoreEntry
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func (r *skillScoreRepo) CountEntriesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SkillScoreEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *skillScoreRepo) AverageCurrentScore(ctx context.Context, tx *gorm.DB) (float64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var avg *float64
	if err := transaction.WithContext(ctx).
		Model(&types.SkillScore{}).
		Select("AVG(current_score)").
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
