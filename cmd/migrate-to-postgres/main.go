// migrate-to-postgres copies stored dungeons from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/dungeons.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user dungeon \
//	    -pg-password dungeon \
//	    -pg-database dungeons
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/dungeons.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "dungeon", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "dungeon", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "dungeons", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := store.Open(ctx, store.DefaultConfig(*sqlitePath))
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := store.DefaultPostgresConfig()
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	var dst *store.Store
	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	} else {
		log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", pg.User, pg.Host, pg.Port, pg.Database)
		dst, err = store.Open(ctx, store.Config{Driver: string(store.DialectPostgres), Postgres: pg})
		if err != nil {
			log.Fatalf("Failed to open PostgreSQL database: %v", err)
		}
		defer dst.Close()
	}

	copied, skipped, err := migrate(ctx, src, dst)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("====================================")
	log.Printf("Migration complete! Dungeons copied: %d, already present: %d", copied, skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}

// migrate copies every dungeon in src to dst, oldest first so ids keep
// their relative order. A nil dst only reads src.
func migrate(ctx context.Context, src, dst *store.Store) (copied, skipped int, err error) {
	summaries, err := src.ListDungeons(ctx, 0)
	if err != nil {
		return 0, 0, err
	}

	for i := len(summaries) - 1; i >= 0; i-- {
		rec, err := src.LoadDungeon(ctx, summaries[i].ID)
		if err != nil {
			return copied, skipped, err
		}
		if dst == nil {
			log.Printf("  Would copy dungeon %d (seed %d, %d events)", rec.ID, rec.Seed, len(rec.Trace))
			copied++
			continue
		}

		id, created, err := dst.ImportDungeon(ctx, rec)
		if err != nil {
			return copied, skipped, err
		}
		if created {
			log.Printf("  Copied dungeon %d -> %d", rec.ID, id)
			copied++
		} else {
			skipped++
		}
	}
	return copied, skipped, nil
}
