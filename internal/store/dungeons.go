package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
)

// Summary is one row of the dungeons table
type Summary struct {
	ID          int64     `json:"id"`
	Seed        int64     `json:"seed"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Fingerprint string    `json:"fingerprint"`
	RoomCount   int       `json:"room_count"`
	DoorCount   int       `json:"door_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record is a stored dungeon with its grid and trace restored
type Record struct {
	Summary
	Grid  *dungeon.Grid
	Trace dungeon.Trace
}

// SaveDungeon stores a generated dungeon and its trace. Saving a dungeon
// whose fingerprint is already stored returns the existing id.
func (s *Store) SaveDungeon(ctx context.Context, seed int64, g *dungeon.Grid, res *dungeon.Result) (int64, error) {
	id, _, err := s.save(ctx, newDungeon{
		seed:        seed,
		grid:        g,
		roomCount:   len(res.Rooms),
		doorCount:   len(res.Doors),
		trace:       res.Trace,
		fingerprint: dungeon.Fingerprint(g, res.Trace),
	})
	return id, err
}

// ImportDungeon copies a record loaded from another store. The record's id
// and creation time are not kept. created is false when a dungeon with the
// same fingerprint was already present.
func (s *Store) ImportDungeon(ctx context.Context, rec *Record) (id int64, created bool, err error) {
	return s.save(ctx, newDungeon{
		seed:        rec.Seed,
		grid:        rec.Grid,
		roomCount:   rec.RoomCount,
		doorCount:   rec.DoorCount,
		trace:       rec.Trace,
		fingerprint: rec.Fingerprint,
	})
}

// newDungeon is a row about to be inserted
type newDungeon struct {
	seed        int64
	grid        *dungeon.Grid
	roomCount   int
	doorCount   int
	trace       dungeon.Trace
	fingerprint string
}

func (s *Store) save(ctx context.Context, d newDungeon) (int64, bool, error) {
	if existing, err := s.FindByFingerprint(ctx, d.fingerprint); err == nil {
		return existing.ID, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, false, err
	}

	id, err := s.insertDungeon(ctx, d)
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			existing, findErr := s.FindByFingerprint(ctx, d.fingerprint)
			if findErr != nil {
				return 0, false, findErr
			}
			return existing.ID, false, nil
		}
		return 0, false, err
	}

	logger.Debug("Dungeon saved", "id", id, "seed", d.seed, "events", len(d.trace))
	return id, true, nil
}

func (s *Store) insertDungeon(ctx context.Context, d newDungeon) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.qb.BuildWithReturning(
		`INSERT INTO dungeons (seed, width, height, fingerprint, layout, room_count, door_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, "id")
	args := []any{d.seed, d.grid.Width, d.grid.Height, d.fingerprint,
		strings.Join(d.grid.Layout(), "\n"), d.roomCount, d.doorCount}

	var id int64
	if s.dialect.SupportsLastInsertID() {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		if id, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read dungeon id: %w", err)
		}
	} else if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, s.qb.Build(
		`INSERT INTO trace_events (dungeon_id, seq, x, y, kind) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for seq, ev := range d.trace {
		if _, err := stmt.ExecContext(ctx, id, seq, ev.X, ev.Y, ev.Kind.String()); err != nil {
			return 0, fmt.Errorf("failed to insert trace event %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit dungeon: %w", err)
	}
	return id, nil
}

const summaryColumns = `id, seed, width, height, fingerprint, room_count, door_count, created_at`

func scanSummary(row interface{ Scan(...any) error }) (Summary, error) {
	var sum Summary
	var created sql.NullTime
	err := row.Scan(&sum.ID, &sum.Seed, &sum.Width, &sum.Height, &sum.Fingerprint,
		&sum.RoomCount, &sum.DoorCount, &created)
	if created.Valid {
		sum.CreatedAt = created.Time
	}
	return sum, err
}

// FindByFingerprint returns the summary of the dungeon with the given
// fingerprint, or ErrNotFound.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		s.qb.Build(`SELECT `+summaryColumns+` FROM dungeons WHERE fingerprint = ?`), fingerprint)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dungeon: %w", err)
	}
	return &sum, nil
}

// LoadDungeon restores a stored dungeon. The grid's atlas is resolved with
// the default palette.
func (s *Store) LoadDungeon(ctx context.Context, id int64) (*Record, error) {
	var layout string
	row := s.db.QueryRowContext(ctx,
		s.qb.Build(`SELECT `+summaryColumns+`, layout FROM dungeons WHERE id = ?`), id)

	var rec Record
	var created sql.NullTime
	err := row.Scan(&rec.ID, &rec.Seed, &rec.Width, &rec.Height, &rec.Fingerprint,
		&rec.RoomCount, &rec.DoorCount, &created, &layout)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dungeon %d: %w", id, err)
	}
	if created.Valid {
		rec.CreatedAt = created.Time
	}

	rec.Grid, err = dungeon.ParseLayout(strings.Split(layout, "\n"))
	if err != nil {
		return nil, fmt.Errorf("%w: dungeon %d layout: %v", ErrCorruptRecord, id, err)
	}
	if rec.Grid.Width != rec.Width || rec.Grid.Height != rec.Height {
		return nil, fmt.Errorf("%w: dungeon %d layout is %dx%d, want %dx%d",
			ErrCorruptRecord, id, rec.Grid.Width, rec.Grid.Height, rec.Width, rec.Height)
	}

	rec.Trace, err = s.loadTrace(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) loadTrace(ctx context.Context, id int64) (dungeon.Trace, error) {
	rows, err := s.db.QueryContext(ctx,
		s.qb.Build(`SELECT x, y, kind FROM trace_events WHERE dungeon_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace for dungeon %d: %w", id, err)
	}
	defer rows.Close()

	var trace dungeon.Trace
	for rows.Next() {
		var ev dungeon.Event
		var kind string
		if err := rows.Scan(&ev.X, &ev.Y, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan trace event: %w", err)
		}
		k, ok := dungeon.ParseTileKind(kind)
		if !ok {
			return nil, fmt.Errorf("%w: dungeon %d trace kind %q", ErrCorruptRecord, id, kind)
		}
		ev.Kind = k
		trace = append(trace, ev)
	}
	return trace, rows.Err()
}

// ListDungeons returns the most recent dungeons first. A limit <= 0 lists
// everything.
func (s *Store) ListDungeons(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT ` + summaryColumns + ` FROM dungeons ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dungeons: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dungeon: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteDungeon removes a dungeon and its trace
func (s *Store) DeleteDungeon(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.qb.Build(`DELETE FROM dungeons WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete dungeon %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
