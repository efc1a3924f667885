package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures the differences between SQL engines the substrate supports.
type Dialect struct {
	Name   string
	Driver string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite3", Placeholder: func(int) string { return "?" }}
)

// TableName is the table holding every key. Created by the migrate package.
const TableName = "kv_entries"

var _ Store = (*SQL)(nil)

// SQL keeps keys as rows of a single table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	getQuery    string
	setQuery    string
	removeQuery string
}

// NewSQL wraps db; the kv_entries table must already exist.
func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	p := dialect.Placeholder
	return &SQL{
		db:          db,
		dialect:     dialect,
		now:         time.Now,
		getQuery:    fmt.Sprintf(`select value from %s where key = %s`, TableName, p(1)),
		setQuery:    fmt.Sprintf(`insert into %s(key, value, updated_at) values (%s, %s, %s) on conflict (key) do update set value = excluded.value, updated_at = excluded.updated_at`, TableName, p(1), p(2), p(3)),
		removeQuery: fmt.Sprintf(`delete from %s where key = %s`, TableName, p(1)),
	}
}

// OpenSQL opens a pooled connection for dialect.
func OpenSQL(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// sqlite serialises writers anyway
		db.SetMaxOpenConns(1)
		return db, nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Dialect reports the dialect the store was built with.
func (s *SQL) Dialect() Dialect { return s.dialect }

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sql get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.setQuery, key, value, s.now().UTC()); err != nil {
		return fmt.Errorf("sql set %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.removeQuery, key); err != nil {
		return fmt.Errorf("sql remove %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *SQL) Close() error { return s.db.Close() }
