package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"maptss.ao/internal/kv"
	"maptss.ao/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn     = flag.String("dsn", os.Getenv("MAPTSS_DSN"), "database DSN")
		dialect = flag.String("dialect", envOr("MAPTSS_STORAGE", "postgres"), "SQL dialect: postgres or sqlite")
		table   = flag.String("table", "", "migrations bookkeeping table (default schema_migrations)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or MAPTSS_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [-dialect postgres|sqlite] [up|down|status|pending]")
	}

	var d kv.Dialect
	switch *dialect {
	case kv.Postgres.Name:
		d = kv.Postgres
	case kv.SQLite.Name:
		d = kv.SQLite
	default:
		log.Fatalf("unknown dialect %q", *dialect)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := kv.OpenSQL(d, *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var opts []migrate.Option
	if *table != "" {
		opts = append(opts, migrate.WithMigrationsTable(*table))
	}
	mgr := migrate.NewManager(db, d, opts...)

	var names []string
	switch flag.Arg(0) {
	case "up":
		names, err = mgr.Up(ctx)
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if name != "" {
			names = []string{name}
		}
	case "status":
		names, err = mgr.Status(ctx)
	case "pending":
		names, err = mgr.Pending(ctx)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
