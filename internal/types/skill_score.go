package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScoreSourceAnalysis = "analysis"
	ScoreSourceQuiz     = "quiz"
)

// SkillScore is the per-user score document. CurrentScore always equals the
// score of the newest SkillScoreEntry; Version guards the conditional update.
type SkillScore struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User                  *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CurrentScore          int       `gorm:"not null;default:0;column:current_score" json:"current_score"`
	Version               int64     `gorm:"not null;default:0;column:version" json:"-"`
	TotalErrorsAnalyzed   int       `gorm:"not null;default:0;column:total_errors_analyzed" json:"total_errors_analyzed"`
	TotalQuizzesCompleted int       `gorm:"not null;default:0;column:total_quizzes_completed" json:"total_quizzes_completed"`
	ErrorsEasy            int       `gorm:"not null;default:0;column:errors_easy" json:"-"`
	ErrorsMedium          int       `gorm:"not null;default:0;column:errors_medium" json:"-"`
	ErrorsHard            int       `gorm:"not null;default:0;column:errors_hard" json:"-"`
	LastUpdated           time.Time `gorm:"column:last_updated" json:"last_updated"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (SkillScore) TableName() string { return "skill_score" }

func (s *SkillScore) ErrorsByDifficulty() map[string]int {
	return map[string]int{
		DifficultyEasy:   s.ErrorsEasy,
		DifficultyMedium: s.ErrorsMedium,
		DifficultyHard:   s.ErrorsHard,
	}
}

// SkillScoreEntry is one append-only history row. The unique
// (error_log_id, source) index makes applying the same event twice a no-op.
type SkillScoreEntry struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SkillScoreID uuid.UUID  `gorm:"type:uuid;index;not null" json:"-"`
	UserID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Score        int        `gorm:"not null;column:score" json:"score"`
	Source       string     `gorm:"not null;column:source;index:idx_entry_event,unique" json:"source"`
	ErrorLogID   *uuid.UUID `gorm:"type:uuid;column:error_log_id;index:idx_entry_event,unique" json:"error_log_id,omitempty"`
	QuizScore    *int       `gorm:"column:quiz_score" json:"quiz_score,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (SkillScoreEntry) TableName() string { return "skill_score_entry" }
