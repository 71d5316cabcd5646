// Command quizlive joins a live quiz session as a participant and keeps a
// local view of the session synchronized with the service, logging state
// transitions as they reconcile.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rkranz/quizlive/internal/api"
	"github.com/rkranz/quizlive/internal/config"
	"github.com/rkranz/quizlive/internal/connection"
	"github.com/rkranz/quizlive/internal/database"
	"github.com/rkranz/quizlive/internal/live"
	"github.com/rkranz/quizlive/internal/model"
	"github.com/rkranz/quizlive/internal/recorder"
	"github.com/rkranz/quizlive/internal/router"
	"github.com/rkranz/quizlive/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	sessionID := flag.String("session", "", "quiz session ID")
	userID := flag.String("user", "", "participant ID (generated if empty)")
	startSession := flag.Bool("start", false, "start the session once connected (admin only)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting quizlive client", "version", version.String())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flags override config file identity.
	if *sessionID != "" {
		cfg.Session.ID = *sessionID
	}
	if *userID != "" {
		cfg.Session.UserID = *userID
	}
	if cfg.Session.UserID == "" {
		cfg.Session.UserID = "user-" + uuid.NewString()[:8]
		logger.Info("generated participant id", "user_id", cfg.Session.UserID)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	restClient := api.NewClient(
		cfg.API.RestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
	)

	var observers []live.Observer
	var rec *recorder.Recorder
	if cfg.Archive.Enabled {
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rec = recorder.New(recorder.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, pool, logger)
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}

		sid := cfg.Session.ID
		observers = append(observers, func(in router.Inbound) {
			rec.Record(sid, in)
		})
	}

	controller := live.NewController(live.Config{
		SessionID: cfg.Session.ID,
		UserID:    cfg.Session.UserID,
		WSBaseURL: cfg.API.WSURL,
		Connection: connection.Config{
			ConnectTimeout:       cfg.Connection.ConnectTimeout,
			PingInterval:         cfg.Connection.PingInterval,
			ReadTimeout:          cfg.Connection.ReadTimeout,
			WriteTimeout:         cfg.Connection.WriteTimeout,
			ReconnectBaseDelay:   cfg.Connection.ReconnectBaseDelay,
			ReconnectMaxDelay:    cfg.Connection.ReconnectMaxDelay,
			MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
			BufferSize:           cfg.Connection.BufferSize,
		},
		ResyncInterval: cfg.Resync.Interval,
	}, restClient, logger, observers...)

	if err := controller.Start(ctx); err != nil {
		logger.Error("failed to start controller", "error", err)
		os.Exit(1)
	}

	if *startSession {
		go func() {
			// Give the connection a moment to establish before asking the
			// service to start.
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			if err := controller.StartSession(ctx); err != nil {
				logger.Error("failed to start session", "error", err)
			}
		}()
	}

	watchUpdates(ctx, controller, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := controller.Stop(shutdownCtx); err != nil {
		logger.Error("controller shutdown error", "error", err)
	}
	if rec != nil {
		if err := rec.Stop(shutdownCtx); err != nil {
			logger.Error("recorder shutdown error", "error", err)
		}
	}

	stats := controller.DispatcherStats()
	logger.Info("shutdown complete",
		"frames_received", stats.FramesReceived,
		"events_routed", stats.EventsRouted,
		"parse_errors", stats.ParseErrors,
	)
}

func loadConfig(path string) (*config.ClientConfig, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.LoadWithDefaults(path)
}

// watchUpdates logs reconciled state transitions until shutdown.
func watchUpdates(ctx context.Context, controller *live.Controller, logger *slog.Logger) {
	var lastStatus model.SessionStatus
	var lastQuestion string

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-controller.Updates():
			if !ok {
				return
			}

			if u.Notice != "" {
				logger.Warn("session notice", "notice", u.Notice)
			}

			s := u.State.Session
			if s == nil {
				logger.Info("waiting for session", "connected", u.Connected)
				continue
			}

			if s.Status != lastStatus {
				logger.Info("session status",
					"status", s.Status,
					"participants", len(s.Participants),
					"connected", u.Connected,
				)
				lastStatus = s.Status
			}

			if q := u.State.Current; q != nil && q.ID != lastQuestion {
				logger.Info("current question",
					"question_id", q.ID,
					"text", q.Text,
					"options", q.Options,
					"time_limit", q.TimeLimit,
				)
				lastQuestion = q.ID
			}

			if u.State.Inactive {
				logger.Warn("session closed by server", "reason", u.State.InactiveReason)
				return
			}

			if s.Status == model.StatusCompleted {
				for i, entry := range u.State.Leaderboard {
					logger.Info("final standing",
						"rank", i+1,
						"user_id", entry.UserID,
						"score", entry.Score,
					)
				}
				fmt.Println("quiz completed")
				return
			}
		}
	}
}
