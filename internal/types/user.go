package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceExperienced  = "experienced"
)

// Languages the mentor can explain in.
var ValidLanguages = []string{"hindi", "english", "hinglish", "spanish", "french", "german", "chinese", "japanese"}

func IsValidExperienceLevel(level string) bool {
	switch level {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceExperienced:
		return true
	}
	return false
}

func IsValidLanguage(language string) bool {
	for _, l := range ValidLanguages {
		if l == language {
			return true
		}
	}
	return false
}

type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"not null;column:name" json:"name"`
	Email           string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password        string         `gorm:"not null;column:password" json:"-"`
	Role            string         `gorm:"not null;default:'user';column:role" json:"role"`
	SkillScore      int            `gorm:"not null;default:0;column:skill_score" json:"skill_score"`
	ExperienceLevel string         `gorm:"not null;default:'beginner';column:experience_level" json:"experience_level"`
	Language        string         `gorm:"not null;default:'hinglish';column:preferred_language" json:"preferred_language"`
	LastActive      time.Time      `gorm:"column:last_active" json:"last_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

// PublicUser is the credential-free projection returned by the API.
type PublicUser struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	SkillScore      int       `json:"skill_score"`
	ExperienceLevel string    `json:"experience_level"`
	Language        string    `json:"preferred_language"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		SkillScore:      u.SkillScore,
		ExperienceLevel: u.ExperienceLevel,
		Language:        u.Language,
	}
}
