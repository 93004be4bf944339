package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/api"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/browser"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/config"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/db"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/logging"
	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

func main() {
	// Load configuration; the YAML file, if any, comes from $INTELLIBROWSE_CONFIG
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Setup logging
	logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.IsProduction(),
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Built after logging.Setup so validator warnings use the configured logger
	deps := api.Dependencies{Validators: testtypes.NewFactory()}

	// Database is optional; without it the item and auth routes answer 503
	database, err := connectDB(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, starting in degraded mode")
	} else {
		defer database.Close()
		store := db.NewStore(database)
		deps.DB = store
		deps.Users = store
		deps.Items = store
	}

	// Browser sessions are launched lazily by the start_session tool
	manager := browser.NewManager(&browser.PlaywrightLauncher{Install: cfg.Browser.Install}, browser.ManagerConfig{
		Headless:      cfg.Browser.Headless,
		MaxSessions:   cfg.Browser.MaxSessions,
		IdleTimeout:   cfg.Browser.IdleTimeout,
		SweepInterval: cfg.Browser.SweepInterval,
	})
	manager.StartSweeper(ctx)
	deps.Tools = browser.NewRegistry(manager)

	// Create server
	srv, err := api.NewServer(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Start server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("could not gracefully shutdown the server")
		}
		if err := manager.Shutdown(); err != nil {
			log.Error().Err(err).Msg("failed to close browser sessions")
		}
		close(done)
	}()

	log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("could not listen on port")
	}

	<-done
	log.Info().Msg("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	database, err := db.New(connectCtx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: int32(cfg.DatabaseMaxConns),
		MinConns: int32(cfg.DatabaseMinConns),
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(connectCtx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
