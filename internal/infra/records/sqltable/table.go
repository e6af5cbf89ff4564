// Package sqltable implements the record table shared by the SQLite and
// Postgres record stores. Each row holds the English source block and the
// original and current target block for both languages.
package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"aligncore/pkg/domain"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// OrderBy is the expression giving stable insertion order.
	OrderBy string
	// Upgrades run after table creation, formatted with the table name.
	Upgrades []string
}

// SQLite binds with ? and orders by rowid.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	OrderBy:     "rowid",
}

// Postgres binds with $n and orders by a serial column, since TEXT ids do
// not sort in insertion order. Tables created without it gain the column,
// numbered in the current physical row order.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	OrderBy:     "seq",
	Upgrades:    []string{"ALTER TABLE %s ADD COLUMN IF NOT EXISTS seq BIGSERIAL"},
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const columns = "id, en, ru_original, ru_modified, ko_original, ko_modified"

// Table reads and writes records in a single table.
type Table struct {
	db      *sql.DB
	name    string
	dialect Dialect
}

// New binds a table name to db. The name is used verbatim in SQL, so only
// plain identifiers are accepted.
func New(db *sql.DB, name string, dialect Dialect) (*Table, error) {
	if name == "" {
		name = "align"
	}
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	return &Table{db: db, name: name, dialect: dialect}, nil
}

// DB exposes the underlying handle for tests.
func (t *Table) DB() *sql.DB { return t.db }

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// EnsureSchema creates the table when it does not exist.
func (t *Table) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		en TEXT NOT NULL,
		ru_original TEXT,
		ru_modified TEXT,
		ko_original TEXT,
		ko_modified TEXT
	)`, t.name)
	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", t.name, err)
	}
	for _, stmt := range t.dialect.Upgrades {
		if _, err := t.db.ExecContext(ctx, fmt.Sprintf(stmt, t.name)); err != nil {
			return fmt.Errorf("upgrade %s table: %w", t.name, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.Record, error) {
	var (
		id, en        string
		ruOrig, ruMod sql.NullString
		koOrig, koMod sql.NullString
	)
	if err := row.Scan(&id, &en, &ruOrig, &ruMod, &koOrig, &koMod); err != nil {
		return domain.Record{}, err
	}
	return domain.NewRecord(id, en, map[domain.Language]domain.TargetBlock{
		domain.LanguageRU: {Original: ruOrig.String, Current: ruMod.String},
		domain.LanguageKO: {Original: koOrig.String, Current: koMod.String},
	}), nil
}

// ListRecords returns all rows in insertion order.
func (t *Table) ListRecords(ctx context.Context) ([]domain.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", columns, t.name, t.dialect.OrderBy)
	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// GetRecord returns one row or domain.ErrUnknownRecord.
func (t *Table) GetRecord(ctx context.Context, id string) (domain.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", columns, t.name, t.dialect.Placeholder(1))
	rec, err := scanRecord(t.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownRecord, id)
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("select record %s: %w", id, err)
	}
	return rec, nil
}

func modifiedColumn(lang domain.Language) (string, error) {
	switch lang {
	case domain.LanguageRU:
		return "ru_modified", nil
	case domain.LanguageKO:
		return "ko_modified", nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidLanguage, lang)
	}
}

// SetTargetBlock replaces the current block for lang.
func (t *Table) SetTargetBlock(ctx context.Context, id string, lang domain.Language, block string) error {
	col, err := modifiedColumn(lang)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET %s = %s WHERE id = %s", t.name, col, t.dialect.Placeholder(1), t.dialect.Placeholder(2))
	res, err := t.db.ExecContext(ctx, q, block, id)
	if err != nil {
		return fmt.Errorf("update %s of %s: %w", col, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownRecord, id)
	}
	return nil
}

// PutRecord inserts rec or replaces the row with the same id.
func (t *Table) PutRecord(ctx context.Context, rec domain.Record) error {
	ph := make([]string, 6)
	for i := range ph {
		ph[i] = t.dialect.Placeholder(i + 1)
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET
		en = excluded.en,
		ru_original = excluded.ru_original,
		ru_modified = excluded.ru_modified,
		ko_original = excluded.ko_original,
		ko_modified = excluded.ko_modified`, t.name, columns, strings.Join(ph, ", "))
	ru := rec.Targets[domain.LanguageRU]
	ko := rec.Targets[domain.LanguageKO]
	if _, err := t.db.ExecContext(ctx, q, rec.ID, rec.Source, ru.Original, ru.Current, ko.Original, ko.Current); err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// Close releases the database handle.
func (t *Table) Close() error { return t.db.Close() }
