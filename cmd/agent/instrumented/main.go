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

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

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

	var storeConfig pizzaagent.StoreConfig
	if err := envdecode.Decode(&storeConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}
	planStore := store.NewFilePlanStore(storeConfig.Path)

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

	tracerProvider, meterProvider, otelShutdown, err := pizzaagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(pizzaagent.TracerNameCoordinator)
	meter := meterProvider.Meter(pizzaagent.TracerNameCoordinator)

	ctx, span := tracer.Start(ctx, pizzaagent.TracerNameCoordinator, trace.WithAttributes(
		attribute.Int("team.id", gameConfig.TeamID),
		attribute.String("game.base_url", gameConfig.BaseURL),
	))
	defer span.End()

	httpClient := &http.Client{Timeout: gameConfig.RequestTimeout}
	client := gameclient.NewClient(gameConfig, httpClient)

	logger := slog.Default()
	base := coordinator.NewCoordinator(strategyConfig, client, planStore, turnLog, gameConfig.TeamID, logger)
	coord := coordinator.NewInstrumentedCoordinator(base, tracer, meter)

	reader := stream.NewReader(gameConfig, &http.Client{}, logger)

	slog.Info("SETUP: Instrumented agent starting", "team_id", gameConfig.TeamID, "base_url", gameConfig.BaseURL)
	if err := reader.Run(ctx, coord.OnEvent); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("FAILURE: Event loop stopped", "error", err)
	}

	coord.Machine().CancelRunning()
	slog.Info("SETUP: Agent shut down")
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
