package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/enki09/borg-collective/internal/api"
	"github.com/enki09/borg-collective/internal/config"
	"github.com/enki09/borg-collective/internal/relay"
	"github.com/enki09/borg-collective/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize snapshot store: postgres when configured, sqlite otherwise
	var snap store.SnapshotStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		snap = pgStore
		logger.Info().Msg("snapshots persisted to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		snap = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("snapshots persisted to SQLite")
	}
	defer snap.Close()

	// Initialize inbox transport: redis when configured, in-process otherwise
	var inbox store.Inbox
	if cfg.RedisURL != "" {
		redisInbox, err := store.NewRedisInbox(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisInbox.Close()
		inbox = redisInbox
		logger.Info().Msg("broadcast inboxes backed by Redis")
	} else {
		inbox = store.NewMemoryInbox()
		logger.Info().Msg("broadcast inboxes in memory")
	}

	registry := relay.NewRegistry(cfg.SessionTTL)

	rel := relay.New(logger,
		relay.WithDirectory(registry),
		relay.WithDeliverer(inbox),
		relay.WithSnapshotter(snap),
	)

	// Create router
	router := api.NewRouter(logger, rel, registry, inbox, snap)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting relay server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
