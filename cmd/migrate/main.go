package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/orderflow/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		direction string
		steps     int
		dsn       string
	)

	flag.StringVar(&direction, "direction", "up", "migration direction: up|down|status")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: ORDERFLOW_POSTGRES_DSN)")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("ORDERFLOW_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("ORDERFLOW_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			fail("migrate up failed: %v", err)
		}
		reportStatus(ctx, store, "migrate up ok")
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			fail("migrate down failed: %v", err)
		}
		reportStatus(ctx, store, "migrate down ok")
	case "status":
		reportStatus(ctx, store, "migration status")
	default:
		fail("unsupported direction: %s (use up|down|status)", direction)
	}
}

func reportStatus(ctx context.Context, store *postgres.Store, prefix string) {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		fail("migration status failed: %v", err)
	}
	fmt.Printf("%s: version=%d applied=%d\n", prefix, version, count)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
