// Package postgres provides the record store over a Postgres table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"aligncore/internal/infra/records/sqltable"
	"aligncore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.RecordStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/aligncore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store reads and updates records in a Postgres table.
type Store struct {
	*sqltable.Table
}

// NewStore connects with dsn (defaultDSN when empty) and ensures the record
// table exists.
func NewStore(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	t, err := sqltable.New(db, table, sqltable.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := t.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Table: t}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
