package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/requestdata"
	"github.com/debugmentor/debugmentor-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetProfile(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	profile, err := uh.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, profile)
}

func (uh *UserHandler) GetSkillScore(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	doc, err := uh.userService.GetSkillScore(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, doc)
}

func (uh *UserHandler) UpdateExperienceLevel(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		ExperienceLevel string `json:"experience_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}
	user, err := uh.userService.UpdateExperienceLevel(c.Request.Context(), userID, req.ExperienceLevel)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) UpdateLanguage(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		Language string `json:"preferred_language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.ValidationFailed("body", "invalid request body"))
		return
	}
	user, err := uh.userService.UpdateLanguage(c.Request.Context(), userID, req.Language)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

// currentUserID pulls the authenticated user out of request data. The auth
// middleware guarantees it is present on protected routes.
func currentUserID(c *gin.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.AuthRejected(fmt.Errorf("no authenticated user"))
	}
	return rd.UserID, nil
}
