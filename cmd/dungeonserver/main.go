package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/config"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
	"github.com/lawnchairsociety/dungeonmaker/internal/server"
	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config YAML file")
	address := flag.String("address", "", "Listen address (default: from config)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging config: %v\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting dungeon server")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Server.Address = *address
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	var st server.Store
	if cfg.Storage.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := store.Open(ctx, cfg.Storage)
		cancel()
		if err != nil {
			logger.Error("Failed to open store", "driver", cfg.Storage.Driver, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = db
	} else {
		logger.Info("Persistence disabled")
	}

	srv := server.New(cfg, st)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Dungeon server running", "address", cfg.Server.Address)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warning("Shutdown incomplete", "error", err)
	}
	logger.Info("Server stopped")
}
