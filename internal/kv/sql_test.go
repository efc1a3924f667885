package kv

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSQLStorePostgresQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewSQL(db, Postgres)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("select value from kv_entries where key = $1")).
		WithArgs("maptss_users").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))
	v, err := s.Get(ctx, "maptss_users")
	if err != nil || v != "[]" {
		t.Fatalf("Get: %q, %v", v, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("select value from kv_entries where key = $1")).
		WithArgs("maptss_missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := s.Get(ctx, "maptss_missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("insert into kv_entries(key, value, updated_at) values ($1, $2, $3) on conflict (key) do update")).
		WithArgs("maptss_users", `[{"id":"u1"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := s.Set(ctx, "maptss_users", `[{"id":"u1"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("delete from kv_entries where key = $1")).
		WithArgs("maptss_users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.Remove(ctx, "maptss_users"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreSQLitePlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewSQL(db, SQLite)
	mock.ExpectExec(regexp.QuoteMeta("delete from kv_entries where key = ?")).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := s.Remove(context.Background(), "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
