package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/debugmentor/debugmentor-backend/internal/clients/redis"
	"github.com/debugmentor/debugmentor-backend/internal/db"
	"github.com/debugmentor/debugmentor-backend/internal/gate"
	"github.com/debugmentor/debugmentor-backend/internal/handlers"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/middleware"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/server"
	"github.com/debugmentor/debugmentor-backend/internal/services"
	"github.com/debugmentor/debugmentor-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "5001", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 604800, log)
	allowedOrigins := strings.Split(utils.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")
	authLimit := utils.GetEnvAsInt("GATE_AUTH_LIMIT", 20, log)
	authWindow := utils.GetEnvAsInt("GATE_AUTH_WINDOW_SECONDS", 900, log)
	aiLimit := utils.GetEnvAsInt("GATE_AI_LIMIT", 10, log)
	aiWindow := utils.GetEnvAsInt("GATE_AI_WINDOW_SECONDS", 60, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	skillScoreRepo := repos.NewSkillScoreRepo(thePG, log)
	errorLogRepo := repos.NewErrorLogRepo(thePG, log)

	// Request gate: redis-backed counter when available, in-process otherwise.
	var counter gate.Counter = gate.NewMemoryCounter()
	if os.Getenv("REDIS_ADDR") != "" {
		gateCounter, gErr := redis.NewGateCounter(log)
		if gErr != nil {
			log.Warn("Redis gate counter init failed, using in-memory counter", "error", gErr)
		} else {
			counter = gateCounter
			defer gateCounter.Close()
		}
	}
	requestGate := gate.New(log, counter,
		gate.Bucket{Name: gate.BucketAuth, Limit: authLimit, Window: time.Duration(authWindow) * time.Second},
		gate.Bucket{Name: gate.BucketAI, Limit: aiLimit, Window: time.Duration(aiWindow) * time.Second},
	)

	// Services
	log.Info("Setting up Services from main...")
	geminiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Error("Could not init GeminiClient", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	skillScoreService := services.NewSkillScoreService(thePG, log, skillScoreRepo, userRepo)
	userService := services.NewUserService(thePG, log, userRepo, skillScoreService)
	analysisService := services.NewAnalysisService(thePG, log, requestGate, geminiClient, errorLogRepo, userRepo, skillScoreService)
	quizService := services.NewQuizService(thePG, log, requestGate, geminiClient, errorLogRepo, skillScoreService)
	adminService := services.NewAdminService(thePG, log, userRepo, errorLogRepo, skillScoreRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	errorHandler := handlers.NewErrorHandler(analysisService, quizService)
	adminHandler := handlers.NewAdminHandler(adminService)
	healthcheckHandler := handlers.NewHealthcheckHandler(postgresService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(log, requestGate)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AllowedOrigins:      allowedOrigins,
		AuthHandler:         authHandler,
		UserHandler:         userHandler,
		ErrorHandler:        errorHandler,
		AdminHandler:        adminHandler,
		HealthcheckHandler:  healthcheckHandler,
		AuthMiddleware:      authMiddleware,
		RateLimitMiddleware: rateLimitMiddleware,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
