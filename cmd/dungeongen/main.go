package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/config"
	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/export"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command-line flags
type options struct {
	configPath string
	seed       int64
	seedSet    bool
	width      int
	height     int
	outFile    string
	withTrace  bool
	save       bool
	quiet      bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dungeongen", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "Path to config YAML file")
	fs.Int64Var(&opts.seed, "seed", 0, "Generation seed (default: config seed, or random)")
	fs.IntVar(&opts.width, "width", 0, "Grid width (default: from config)")
	fs.IntVar(&opts.height, "height", 0, "Grid height (default: from config)")
	fs.StringVar(&opts.outFile, "out", "", "Write the dungeon as YAML to this file")
	fs.BoolVar(&opts.withTrace, "trace", false, "Include the mutation trace in the YAML output")
	fs.BoolVar(&opts.save, "save", false, "Persist the dungeon to the configured store")
	fs.BoolVar(&opts.quiet, "quiet", false, "Don't print the layout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: logging config: %v\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.width > 0 {
		cfg.Dungeon.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Dungeon.Height = opts.height
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	seed := cfg.Dungeon.SeedOrNow()
	if opts.seedSet {
		seed = opts.seed
	}

	grid, err := dungeon.NewGrid(cfg.Dungeon.Width, cfg.Dungeon.Height)
	if err != nil {
		return err
	}
	res, err := dungeon.NewGenerator(cfg.Dungeon.Rules(), dungeon.NewSource(seed)).Generate(grid)
	if err != nil {
		return fmt.Errorf("generating seed %d: %w", seed, err)
	}

	if opts.outFile != "" {
		doc := export.NewDocument(seed, grid, res, opts.withTrace)
		if err := export.WriteFile(opts.outFile, doc); err != nil {
			return fmt.Errorf("writing %s: %w", opts.outFile, err)
		}
		logger.Info("Dungeon written", "path", opts.outFile, "trace", opts.withTrace)
	}

	if opts.save {
		id, err := save(cfg.Storage, seed, grid, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved as dungeon %d\n", id)
	}

	if !opts.quiet {
		fmt.Fprintf(stdout, "Dungeon %dx%d (seed: %d, rooms: %d, doors: %d)\n",
			grid.Width, grid.Height, seed, len(res.Rooms), len(res.Doors))
		fmt.Fprintln(stdout, strings.Repeat("=", grid.Width))
		for _, row := range grid.Layout() {
			fmt.Fprintln(stdout, row)
		}
	}
	return nil
}

// save persists a run. With storage disabled it falls back to the SQLite
// file named in the config.
func save(cfg store.Config, seed int64, grid *dungeon.Grid, res *dungeon.Result) (int64, error) {
	if !cfg.Enabled() {
		cfg.Driver = "sqlite"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	id, err := st.SaveDungeon(ctx, seed, grid, res)
	if err != nil {
		return 0, fmt.Errorf("saving dungeon: %w", err)
	}
	return id, nil
}
