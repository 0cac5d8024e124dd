package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/cli"
	"github.com/hmkim/marketbrief/internal/logging"
)

func main() {
	cfg := config.DefaultConfig()
	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		logging.Log.WithError(err).Warn("log file unavailable, logging to stdout only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
