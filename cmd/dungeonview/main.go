package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/dungeonmaker/internal/config"
	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/export"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
	"github.com/lawnchairsociety/dungeonmaker/internal/view"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to config YAML file")
	seed := flag.Int64("seed", 0, "Generation seed (default: config seed, or random)")
	width := flag.Int("width", 0, "Grid width (default: from config)")
	height := flag.Int("height", 0, "Grid height (default: from config)")
	inFile := flag.String("in", "", "Show a dungeon exported with dungeongen instead of generating one")
	interval := flag.Duration("interval", 0, "Delay between revealed events (default: server reveal_interval)")
	flag.Parse()

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	// The screen owns the terminal; log to file only
	logConfig, err := logger.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging config: %v\n", err)
	}
	console := false
	logConfig.ConsoleEnabled = &console
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}
	if *width > 0 {
		cfg.Dungeon.Width = *width
	}
	if *height > 0 {
		cfg.Dungeon.Height = *height
	}
	if *interval > 0 {
		cfg.Server.RevealInterval = *interval
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rules := cfg.Dungeon.Rules()
	w, h := cfg.Dungeon.Width, cfg.Dungeon.Height
	generate := func(seed int64) (*dungeon.Grid, *dungeon.Result, error) {
		grid, err := dungeon.NewGrid(w, h)
		if err != nil {
			return nil, nil, err
		}
		res, err := dungeon.NewGenerator(rules, dungeon.NewSource(seed)).Generate(grid)
		if err != nil {
			return nil, nil, err
		}
		return grid, res, nil
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	viewer := view.NewViewer(screen, generate, cfg.Server.RevealInterval)
	if err := load(viewer, *inFile, cfg, *seed, seedSet); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = viewer.Run(ctx)
	stop()
	screen.Fini()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load shows the exported dungeon in inFile, or generates a fresh one
func load(viewer *view.Viewer, inFile string, cfg *config.Config, seed int64, seedSet bool) error {
	if inFile != "" {
		doc, err := export.ReadFile(inFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", inFile, err)
		}
		grid, err := doc.Grid()
		if err != nil {
			return fmt.Errorf("reading %s: %w", inFile, err)
		}
		return viewer.Show(doc.Seed, grid, doc.Trace)
	}

	if !seedSet {
		seed = cfg.Dungeon.SeedOrNow()
	}
	return viewer.Generate(seed)
}
