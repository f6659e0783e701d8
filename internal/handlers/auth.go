package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/middleware"
	"github.com/debugmentor/debugmentor-backend/internal/requestdata"
	"github.com/debugmentor/debugmentor-backend/internal/services"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ExperienceLevel string `json:"experience_level"`
		Language        string `json:"preferred_language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}

	user := types.User{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ExperienceLevel: req.ExperienceLevel,
		Language:        req.Language,
	}
	pair, err := ah.authService.RegisterUser(c.Request.Context(), &user)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user.Public(),
	})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}

	user, pair, err := ah.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user.Public(),
	})
}

// Check reports whether the caller holds a valid token. Never errors on a
// bad token; the frontend uses it to decide between login and dashboard.
func (ah *AuthHandler) Check(c *gin.Context) {
	user, err := ah.authService.CheckToken(c.Request.Context(), middleware.ExtractToken(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	if user == nil {
		RespondOK(c, gin.H{"isAuthenticated": false, "user": nil})
		return
	}
	RespondOK(c, gin.H{"isAuthenticated": true, "user": user.Public()})
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		RespondError(c, apierr.ValidationFailed("refreshToken", "refresh token is required"))
		return
	}

	ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
		RefreshToken: req.RefreshToken,
	})
	pair, err := ah.authService.RefreshUser(ctx)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.LogoutUser(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "logged out successfully"})
}
