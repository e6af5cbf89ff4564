// Package sqlite provides the progress store backed by a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register the pure-Go sqlite driver

	"aligncore/internal/infra/progress/sqlstate"
)

// Store keeps progress rows in the progress table of a SQLite database.
type Store struct {
	*sqlstate.State
	path string
}

// NewStore opens path, creating the file and the table when missing.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "aligncore_progress.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	state, err := sqlstate.New(ctx, db, sqlstate.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{State: state, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
