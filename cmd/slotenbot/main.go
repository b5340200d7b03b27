// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/slotenwacht/slotenbot/auth"
	"github.com/slotenwacht/slotenbot/intake"
	"github.com/slotenwacht/slotenbot/lib/clock"
	"github.com/slotenwacht/slotenbot/lib/config"
	"github.com/slotenwacht/slotenbot/notify"
	"github.com/slotenwacht/slotenbot/report"
	"github.com/slotenwacht/slotenbot/telegram"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	pflag.StringVar(&configPath, "config", "", "path to slotenbot.yaml (default: $"+config.EnvVar+")")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("slotenbot %s\n", version)
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	schema, err := cfg.Schema()
	if err != nil {
		return err
	}

	clk := clock.Real()

	store, err := report.Open(report.Config{
		Path:    cfg.Database.Path,
		Columns: schema.Names(),
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing report store", "error", err)
		}
	}()

	// The HTTP timeout must exceed the long-poll hold, or every idle
	// poll fails with a client-side timeout.
	client, err := telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.Telegram.Token,
		BaseURL: cfg.Telegram.APIURL,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.Telegram.PollTimeout+15) * time.Second,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("validating bot token: %w", err)
	}
	logger.Info("telegram token valid", "bot_id", me.ID, "username", me.Username)

	notifier, err := notify.New(notify.Config{
		Sender:      client,
		Schema:      schema,
		ChatID:      cfg.GroupID,
		MaxAttempts: cfg.Notify.MaxAttempts,
		BaseDelay:   cfg.Notify.BaseDelay.Std(),
		Clock:       clk,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	registry, err := intake.NewRegistry(intake.RegistryConfig{
		Schema: schema,
		Store:  intake.NewMemoryStore(),
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	engine, err := intake.NewEngine(intake.EngineConfig{
		Registry:    registry,
		Store:       store,
		Broadcaster: notifier,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	bot := &Bot{
		gate:   auth.New(cfg.AllowedUsers, cfg.GroupID),
		engine: engine,
		sender: client,
		logger: logger,
	}

	poller, err := telegram.NewPoller(telegram.PollerConfig{
		Client:  client,
		Timeout: cfg.Telegram.PollTimeout,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// Idle sessions are reaped on a ticker off the processing loop;
	// the registry serializes the sweep against message handling.
	go runSweep(ctx, registry, clk, cfg.Intake.SweepInterval.Std(), cfg.Intake.IdleTimeout.Std(), logger)

	logger.Info("slotenbot running",
		"version", version,
		"group_id", cfg.GroupID,
		"allowed_users", len(cfg.AllowedUsers),
		"fields", schema.Len(),
	)

	for {
		updates, err := poller.Next(ctx)
		if err != nil {
			// Only context cancellation reaches here.
			logger.Info("shutting down")
			return nil
		}
		for _, update := range updates {
			bot.HandleUpdate(ctx, update)
		}
	}
}

// runSweep periodically expires idle sessions until ctx is cancelled.
func runSweep(ctx context.Context, registry *intake.Registry, clk clock.Clock, interval, idleThreshold time.Duration, logger *slog.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := registry.Sweep(now, idleThreshold); removed > 0 {
				logger.Info("swept idle sessions", "removed", removed)
			}
		}
	}
}
