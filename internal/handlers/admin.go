package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/debugmentor/debugmentor-backend/internal/services"
)

type AdminHandler struct {
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (ah *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := ah.adminService.Dashboard(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (ah *AdminHandler) ListUsers(c *gin.Context) {
	users, err := ah.adminService.ListUsers(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"users": users})
}

func (ah *AdminHandler) ListErrors(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := ah.adminService.ListErrors(c.Request.Context(), page, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}
