package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/debugmentor/debugmentor-backend/internal/gate"
	"github.com/debugmentor/debugmentor-backend/internal/handlers"
	"github.com/debugmentor/debugmentor-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins      []string
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	ErrorHandler        *handlers.ErrorHandler
	AdminHandler        *handlers.AdminHandler
	HealthcheckHandler  *handlers.HealthcheckHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	api := router.Group("/api")

	// Public
	api.GET("/health", cfg.HealthcheckHandler.Healthcheck)

	auth := api.Group("/auth")
	{
		authGate := cfg.RateLimitMiddleware.LimitByIP(gate.BucketAuth)
		auth.POST("/signup", authGate, cfg.AuthHandler.Signup)
		auth.POST("/login", authGate, cfg.AuthHandler.Login)
		auth.GET("/check", cfg.AuthHandler.Check)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
	}

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/auth/logout", cfg.AuthHandler.Logout)

	errors := protected.Group("/error")
	{
		errors.POST("/analyze", cfg.ErrorHandler.Analyze)
		errors.GET("/history", cfg.ErrorHandler.History)
		errors.GET("/:id", cfg.ErrorHandler.GetByID)
		errors.POST("/:id/test-fix", cfg.ErrorHandler.TestFix)
		errors.POST("/:id/quiz", cfg.ErrorHandler.GenerateQuiz)
		errors.POST("/:id/quiz/answer", cfg.ErrorHandler.SubmitQuizAnswer)
		errors.POST("/:id/quiz/complete", cfg.ErrorHandler.CompleteQuiz)
	}

	user := protected.Group("/user")
	{
		user.GET("/profile", cfg.UserHandler.GetProfile)
		user.GET("/skill-score", cfg.UserHandler.GetSkillScore)
		user.PATCH("/experience-level", cfg.UserHandler.UpdateExperienceLevel)
		user.PATCH("/language", cfg.UserHandler.UpdateLanguage)
	}

	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	{
		admin.GET("/dashboard", cfg.AdminHandler.Dashboard)
		admin.GET("/users", cfg.AdminHandler.ListUsers)
		admin.GET("/errors", cfg.AdminHandler.ListErrors)
	}

	return router
}
