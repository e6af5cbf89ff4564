// Package postgres provides the progress store backed by Postgres JSONB rows.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"aligncore/internal/infra/progress/sqlstate"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/aligncore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps progress rows in the progress table.
type Store struct {
	*sqlstate.State
}

// NewStore connects with dsn (defaultDSN when empty) and ensures the table.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
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
	state, err := sqlstate.New(ctx, db, sqlstate.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{State: state}, nil
}

// OverrideSQLOpen swaps the open function for tests and returns a restore
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
