package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pep299/article-feed-api/internal/application"
	"github.com/pep299/article-feed-api/internal/config"
	"github.com/pep299/article-feed-api/internal/logger"
)

func main() {
	warmOnStart := flag.Bool("warm", true, "prime the lookup cache before serving")
	noSchedule := flag.Bool("no-schedule", false, "disable cache warm and export jobs")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}
	defer app.Close()

	if *warmOnStart {
		if err := app.Articles.Warm(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial cache warm failed")
		}
	}

	var scheduler *application.Scheduler
	if !*noSchedule {
		scheduler, err = app.NewScheduler(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule jobs")
		}
		scheduler.Start()
		log.Info().Int("jobs", scheduler.Jobs()).Msg("Scheduler started")
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server
	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("version", application.Version).Msg("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutting down server...")

	// Cancel background tasks
	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
