package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/debugmentor/debugmentor-backend/internal/normalization"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

const minPasswordLength = 6

func NormalizeUserFields(user *types.User) {
	user.Email = normalization.ParseInputString(user.Email)
	user.Name = normalization.TrimInputString(user.Name)
}

func ValidateRegistration(user *types.User) error {
	if user == nil {
		return fmt.Errorf("no user given, cannot proceed with registration")
	}
	if user.Email == "" {
		return fmt.Errorf("an email is required to register")
	}
	if user.Name == "" {
		return fmt.Errorf("a name is required to register")
	}
	if user.Password == "" {
		return fmt.Errorf("a password is required to register")
	}
	if len(user.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func ValidateLogin(email, password string) error {
	if email == "" {
		return fmt.Errorf("email is required to login")
	}
	if password == "" {
		return fmt.Errorf("password is required to login")
	}
	return nil
}

func HashPassword(user *types.User) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password")
	}
	user.Password = string(hashedPassword)
	return nil
}
