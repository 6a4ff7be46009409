package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

func openStore(t *testing.T, name string) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.DefaultConfig(filepath.Join(t.TempDir(), name)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateCopiesOldestFirst(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, "src.db")
	dst := openStore(t, "dst.db")

	for _, seed := range []int64{1, 2, 3} {
		g, res, err := dungeon.Generate(48, 48, seed)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", seed, err)
		}
		if _, err := src.SaveDungeon(ctx, seed, g, res); err != nil {
			t.Fatalf("SaveDungeon failed: %v", err)
		}
	}

	copied, skipped, err := migrate(ctx, src, dst)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if copied != 3 || skipped != 0 {
		t.Errorf("migrate = (%d, %d), want (3, 0)", copied, skipped)
	}

	list, err := dst.ListDungeons(ctx, 0)
	if err != nil {
		t.Fatalf("ListDungeons failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("destination holds %d dungeons, want 3", len(list))
	}
	// Newest first, so the last listed is the first copied
	if list[2].Seed != 1 || list[0].Seed != 3 {
		t.Errorf("seeds = [%d %d %d], want [3 2 1]", list[0].Seed, list[1].Seed, list[2].Seed)
	}

	copied, skipped, err = migrate(ctx, src, dst)
	if err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if copied != 0 || skipped != 3 {
		t.Errorf("second migrate = (%d, %d), want (0, 3)", copied, skipped)
	}
}

func TestMigrateDryRun(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, "src.db")

	g, res, err := dungeon.Generate(48, 48, 4)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := src.SaveDungeon(ctx, 4, g, res); err != nil {
		t.Fatalf("SaveDungeon failed: %v", err)
	}

	copied, skipped, err := migrate(ctx, src, nil)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if copied != 1 || skipped != 0 {
		t.Errorf("dry run = (%d, %d), want (1, 0)", copied, skipped)
	}
}
