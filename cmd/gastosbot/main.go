// Command gastosbot runs the personal finance Telegram bot: one
// allow-listed user records expenses and income into a Google Sheets
// ledger, and scheduled entries auto-post daily.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/asanchezr/gastosbot/pkg/client"
	"github.com/asanchezr/gastosbot/pkg/config"
	"github.com/asanchezr/gastosbot/pkg/conversation"
	"github.com/asanchezr/gastosbot/pkg/ledger/sheets"
	"github.com/asanchezr/gastosbot/pkg/logging"
	"github.com/asanchezr/gastosbot/pkg/schedule"
	"github.com/asanchezr/gastosbot/pkg/telegram"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.DefaultConfig(cfg.LogLevel))

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gastosbot failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	// A missing .env just means everything comes from the environment.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return config.Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg config.Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return config.Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.BotToken == "" {
		return config.Config{}, fmt.Errorf("BOT_TOKEN environment variable is required")
	}
	if cfg.AllowedUserID == 0 {
		return config.Config{}, fmt.Errorf("ALLOWED_USER_ID environment variable is required")
	}
	if cfg.SheetID == "" {
		return config.Config{}, fmt.Errorf("SHEET_ID environment variable is required")
	}
	if cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = config.DefaultServiceAccountFile
	}
	if cfg.ScheduledFile == "" {
		cfg.ScheduledFile = config.DefaultScheduledFile
	}

	return cfg, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	httpClient, err := client.New(cfg.ServiceAccountFile, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("creating google client: %w", err)
	}

	lgr, err := sheets.New(httpClient, sheets.Config{
		SpreadsheetID: cfg.SheetID,
		SheetName:     cfg.SheetName,
	}, logger.With("component", "sheets_ledger"))
	if err != nil {
		return fmt.Errorf("creating sheets ledger: %w", err)
	}

	store := schedule.Open(cfg.ScheduledFile, logger.With("component", "schedule_store"))

	bot, err := telegram.New(cfg.BotToken, cfg.AllowedUserID, logger.With("component", "telegram"))
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}

	router := conversation.NewRouter(bot, lgr, store, logger.With("component", "conversation"))
	runner := schedule.NewRunner(store, lgr, logger.With("component", "schedule_runner"))

	// Setup context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Start the daily runner in background
	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner.Run(ctx)
	}()

	// Poll Telegram (blocks until the context is canceled)
	logger.Info("starting gastosbot")
	if err := bot.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("telegram bot error", "error", err)
	}

	// Wait for the runner to finish
	if err := <-runnerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("schedule runner error", "error", err)
	}

	logger.Info("gastosbot stopped")
	return nil
}
