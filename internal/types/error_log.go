package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ErrorTypeMessage    = "error_message"
	ErrorTypeStackTrace = "stack_trace"
	ErrorTypeSnippet    = "code_snippet"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	TestFixNotTested    = "not_tested"
	TestFixLikelyFixed  = "likely_fixed"
	TestFixStillFailing = "still_failing"
)

func IsValidErrorType(t string) bool {
	switch t {
	case ErrorTypeMessage, ErrorTypeStackTrace, ErrorTypeSnippet:
		return true
	}
	return false
}

func IsValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// PossibleCause is one ranked cause; probabilities across a payload sum to 100.
type PossibleCause struct {
	Cause       string `json:"cause"`
	Probability int    `json:"probability"`
}

type Fix struct {
	Code  string   `json:"code"`
	Steps []string `json:"steps,omitempty"`
}

// AnalysisPayload is the strict internal schema every oracle response is
// normalized into before anything is persisted or served.
type AnalysisPayload struct {
	ErrorExplanation string          `json:"error_explanation"`
	RootCause        string          `json:"root_cause"`
	PossibleCauses   []PossibleCause `json:"possible_causes,omitempty"`
	Fix              Fix             `json:"fix"`
	WhyFixWorks      string          `json:"why_fix_works,omitempty"`
	VisualFlow       string          `json:"visual_flow,omitempty"`
	RealWorldExample string          `json:"real_world_example,omitempty"`
	LearningTip      string          `json:"learning_tip,omitempty"`
	Difficulty       string          `json:"difficulty"`
	SkillScoreDelta  int             `json:"skill_score_delta"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"createdAt"`
}

// QuizResult is one append-only answer or completion event.
type QuizResult struct {
	QuestionIndex   *int       `json:"questionIndex,omitempty"`
	SelectedAnswer  *int       `json:"selectedAnswer,omitempty"`
	IsCorrect       *bool      `json:"isCorrect,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	FinalScore      *int       `json:"finalScore,omitempty"`
	CorrectAnswers  *int       `json:"correctAnswers,omitempty"`
	TotalQuestions  *int       `json:"totalQuestions,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	SkillScoreDelta *int       `json:"skillScoreDelta,omitempty"`
}

type ErrorLog struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_error_log_user_created,priority:1" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ErrorInput      string         `gorm:"not null;column:error_input" json:"error_input"`
	ErrorType       string         `gorm:"not null;column:error_type" json:"error_type"`
	Analysis        datatypes.JSON `gorm:"type:jsonb;column:analysis" json:"analysis"`
	Difficulty      string         `gorm:"column:difficulty;index" json:"difficulty"`
	SkillScoreDelta int            `gorm:"column:skill_score_delta" json:"skill_score_delta"`
	TestFixStatus   string         `gorm:"not null;default:'not_tested';column:test_fix_status" json:"test_fix_status"`
	TestFixMessage  string         `gorm:"column:test_fix_message" json:"test_fix_message,omitempty"`
	Quiz            datatypes.JSON `gorm:"type:jsonb;column:quiz" json:"quiz,omitempty"`
	QuizResults     datatypes.JSON `gorm:"type:jsonb;column:quiz_results" json:"quiz_results,omitempty"`
	QuizCompletedAt *time.Time     `gorm:"column:quiz_completed_at" json:"quiz_completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"index:idx_error_log_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (ErrorLog) TableName() string { return "error_log" }
