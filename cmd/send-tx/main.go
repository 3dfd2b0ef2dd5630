package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/speedrun-hq/safe-relay-runner/pkg/config"
	"github.com/speedrun-hq/safe-relay-runner/pkg/logger"
	"github.com/speedrun-hq/safe-relay-runner/pkg/runner"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig(config.CommandSendTransaction)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	runID := runner.NewRunID()
	runLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level).WithRunID(runID)

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Plain transfers are paid by the on-ramp account
	r, chain, err := runner.Connect(ctx, cfg, cfg.OnRampPrivateKey, runID, runLogger)
	if err != nil {
		log.Fatalf("Failed to set up the run: %v", err)
	}
	defer chain.Close()

	kit, err := r.SafeKit(ctx, chain.Backend)
	if err != nil {
		chain.Close()
		log.Fatalf("Failed to load the Safe: %v", err)
	}

	result, err := r.SendTransaction(ctx, kit)
	r.Finish(config.CommandSendTransaction, result, err)
	if err != nil {
		chain.Close()
		log.Fatalf("Relayed transfer failed: %v", err)
	}

	runLogger.Info("Run %s finished: %s", runID, result.Outcome)
}
