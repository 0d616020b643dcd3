// Package main is the entry point for the meshview model previewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== meshview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	if path := config.File(); path != "" {
		app.Open(path)
	}

	app.Run()
	logger.Info("closed normally")
}
