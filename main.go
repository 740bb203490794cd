package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/taskly/taskly-be/internal/api"
	"github.com/taskly/taskly-be/internal/auth"
	"github.com/taskly/taskly-be/internal/config"
	"github.com/taskly/taskly-be/internal/database"
	"github.com/taskly/taskly-be/internal/logger"
	"github.com/taskly/taskly-be/internal/monitoring"
	"github.com/taskly/taskly-be/internal/services"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SendGridAPIKey, cfg.MailFrom)
	userService := services.NewUserService(db, emailService)
	taskService := services.NewTaskService(db)

	// Set up and run the background token pruner
	pruner, err := monitoring.NewTokenPruner(userService, cfg.TokenPruneSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid token prune schedule")
	}
	go pruner.Run()

	// Set up router
	router := api.NewRouter(cfg.AllowedOrigins, tokens, userService, taskService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	pruner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
