package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/isdelr/tasktracker-be/internal/api"
	"github.com/isdelr/tasktracker-be/internal/auth"
	"github.com/isdelr/tasktracker-be/internal/config"
	"github.com/isdelr/tasktracker-be/internal/database"
	"github.com/isdelr/tasktracker-be/internal/logger"
	"github.com/isdelr/tasktracker-be/internal/monitoring"
	"github.com/isdelr/tasktracker-be/internal/services"
	"github.com/isdelr/tasktracker-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)
	taskService := services.NewTaskService(db, eventService)
	timeLogService := services.NewTimeLogService(db, eventService, hub)
	summaryService := services.NewSummaryService(taskService, timeLogService)
	systemService := services.NewSystemService(db)

	// Set up and run the stale timer sweeper
	var sweeper *monitoring.Sweeper
	if cfg.MaxTimerDuration > 0 {
		sweeper, err = monitoring.NewSweeper(timeLogService, cfg.SweepSchedule, cfg.MaxTimerDuration)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up sweeper")
		}
		sweeper.Start()
	}

	// Set up router
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	router := api.NewRouter(hub, jwtManager, api.Services{
		Users:    userService,
		Tasks:    taskService,
		TimeLogs: timeLogService,
		Summary:  summaryService,
		Events:   eventService,
		System:   systemService,
	}, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
