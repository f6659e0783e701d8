package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/debugmentor/debugmentor-backend/internal/db"
)

type HealthcheckHandler struct {
	db *db.PostgresService
}

func NewHealthcheckHandler(database *db.PostgresService) *HealthcheckHandler {
	return &HealthcheckHandler{db: database}
}

func (hh *HealthcheckHandler) Healthcheck(c *gin.Context) {
	if err := hh.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
		return
	}
	RespondOK(c, gin.H{"status": "ok", "message": "AI Debugging Mentor API is running"})
}
