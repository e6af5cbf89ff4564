// Package sqlite provides the record store over an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"aligncore/internal/infra/records/sqltable"
	"aligncore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.RecordStore = (*Store)(nil)

// Store reads and updates records in a SQLite table.
type Store struct {
	*sqltable.Table
	path string
}

// NewStore opens (creating when needed) the database at path and ensures the
// record table exists.
func NewStore(ctx context.Context, path, table string) (*Store, error) {
	if path == "" {
		path = "data/tacred_align.sqlite"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)
	t, err := sqltable.New(db, table, sqltable.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := t.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Table: t, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
