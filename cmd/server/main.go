package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codejudge/internal/api"
	"codejudge/internal/app/service"
	"codejudge/internal/common/security"
	"codejudge/internal/domain/repository"
	"codejudge/internal/judge"
	"codejudge/internal/platform/cache"
	"codejudge/internal/platform/config"
	"codejudge/internal/platform/database"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Logger

	// 1. Load Configuration
	config.Load()
	logger.Info().Msg("Configuration loaded")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 6. Initialize Judge Client
	judgeClient := judge.NewClient(judge.Options{
		BaseURL:      config.AppConfig.JudgeURL,
		AuthToken:    config.AppConfig.JudgeAuthToken,
		HTTPTimeout:  config.AppConfig.JudgeHTTPTimeout,
		PollInterval: config.AppConfig.JudgePollInterval,
		PollDeadline: config.AppConfig.JudgePollDeadline,
	}, logger)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo)
	leaderboardService := service.NewLeaderboardService(cache.RDB)
	evaluationService := service.NewEvaluationService(judgeClient, submissionRepo, leaderboardService, logger)
	problemService := service.NewProblemService(problemRepo, evaluationService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, evaluationService, logger)

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, submissionService, leaderboardService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // evaluations poll the judge inside the request
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info().Str("port", config.AppConfig.APIPort).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Could not start server")
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped gracefully")
}
