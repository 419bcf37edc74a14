package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"pizzaagent"
	"pizzaagent/coordinator"
	"pizzaagent/gameclient"
	"pizzaagent/store"
	"pizzaagent/stream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gameConfig pizzaagent.GameConfig
	if err := envdecode.Decode(&gameConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var strategyConfig pizzaagent.StrategyConfig
	if err := envdecode.Decode(&strategyConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	planStore, err := newPlanStore(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to create plan store", "error", err)
		return
	}

	turnLog, cleanup, err := newTurnLogger(gameConfig.TeamID)
	if err != nil {
		slog.Error("SETUP: Failed to create turn logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush turn log", "error", err)
		}
	}()

	httpClient := &http.Client{Timeout: gameConfig.RequestTimeout}
	client := gameclient.NewClient(gameConfig, httpClient)

	logger := slog.Default()
	coord := coordinator.NewCoordinator(strategyConfig, client, planStore, turnLog, gameConfig.TeamID, logger)

	// The stream client gets no per-request timeout: its one request is the
	// long-lived event feed.
	reader := stream.NewReader(gameConfig, &http.Client{}, logger)

	slog.Info("SETUP: Agent starting", "team_id", gameConfig.TeamID, "base_url", gameConfig.BaseURL)
	if err := reader.Run(ctx, coord.OnEvent); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("FAILURE: Event loop stopped", "error", err)
	}

	coord.Machine().CancelRunning()
	slog.Info("SETUP: Agent shut down")
}

// newPlanStore picks S3 when a bucket is configured, the local file
// otherwise.
func newPlanStore(ctx context.Context) (store.PlanStore, error) {
	var cfg pizzaagent.StoreConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return store.NewFilePlanStore(cfg.Path), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return store.NewS3PlanStore(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Key), nil
}

func newTurnLogger(teamID int) (pizzaagent.TurnLogger, func() error, error) {
	logFilePath := pizzaagent.NewTurnLogFilePath(teamID)
	if err := os.MkdirAll("./logs", 0o755); err != nil {
		return nil, func() error { return err }, err
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := pizzaagent.NewFileTurnLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
