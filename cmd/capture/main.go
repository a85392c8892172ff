package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/enki09/borg-collective/clients/go/borg"
	"github.com/enki09/borg-collective/internal/browser"
	"github.com/enki09/borg-collective/internal/capture"
	"github.com/enki09/borg-collective/internal/config"
	"github.com/enki09/borg-collective/internal/extract"
	"github.com/enki09/borg-collective/internal/models"
	"github.com/enki09/borg-collective/internal/profile"
)

const heartbeatInterval = time.Minute

func main() {
	cfg := config.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	if cfg.PageURL == "" {
		logger.Fatal().Msg("PAGE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down capture agent...")
		cancel()
	}()

	source, err := browser.Attach(ctx, cfg.ChromeControlURL, cfg.PageURL, cfg.Headless, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("browser attach failed")
	}
	defer source.Close()

	pageURL := source.PageURL()
	if pageURL == "" {
		pageURL = cfg.PageURL
	}

	prof := profile.Resolve(pageURL)
	logger.Info().
		Str("site", prof.Site).
		Str("model", prof.ModelLabel).
		Str("url", pageURL).
		Msg("attached to chat tab")

	client := borg.NewClient(cfg.RelayURL)
	if _, err := client.RegisterSession(ctx, prof.Site, pageURL); err != nil {
		logger.Fatal().Err(err).Msg("session registration failed")
	}
	logger.Info().Str("session", client.SessionID).Msg("session registered")

	go heartbeatLoop(ctx, client, logger)
	go inboxLoop(ctx, client, logger)

	watcher := capture.NewWatcher(
		source,
		extract.ForProfile(prof),
		capture.NewDeduper(),
		capture.NewBuilder(prof, pageURL),
		client,
		logger,
	)

	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("capture pipeline failed")
	}

	logger.Info().Msg("capture agent stopped")
}

// heartbeatLoop keeps the session alive in the relay's registry.
func heartbeatLoop(ctx context.Context, client *borg.Client, logger zerolog.Logger) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(ctx); err != nil {
				logger.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

// inboxLoop polls for broadcast frames from peer sessions and surfaces them in
// the agent's log.
func inboxLoop(ctx context.Context, client *borg.Client, logger zerolog.Logger) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frames, err := client.PollInbox(ctx, 100)
			if err != nil {
				logger.Warn().Err(err).Msg("inbox poll failed")
				continue
			}
			for _, frame := range frames {
				if frame.Type != models.FrameBroadcast {
					continue
				}
				var env models.Envelope
				if err := json.Unmarshal(frame.Payload, &env); err != nil {
					logger.Debug().Err(err).Msg("undecodable broadcast frame")
					continue
				}
				logger.Info().
					Str("speaker", env.Speaker).
					Str("site", env.Site).
					Str("message_id", env.MessageID).
					Msg("broadcast received")
			}
		}
	}
}
