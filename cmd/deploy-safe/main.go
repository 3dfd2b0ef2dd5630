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
	cfg, err := config.LoadConfig(config.CommandDeploySafe)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	runID := runner.NewRunID()
	runLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level).WithRunID(runID)

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, chain, err := runner.Connect(ctx, cfg, cfg.DeployerPrivateKey, runID, runLogger)
	if err != nil {
		log.Fatalf("Failed to set up the run: %v", err)
	}
	defer chain.Close()

	result, err := r.DeploySafe(ctx)
	r.Finish(config.CommandDeploySafe, result, err)
	if err != nil {
		chain.Close()
		log.Fatalf("Safe deployment failed: %v", err)
	}

	runLogger.Info("Run %s finished: %s", runID, result.Outcome)
}
