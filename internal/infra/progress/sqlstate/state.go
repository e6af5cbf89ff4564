// Package sqlstate stores progress as JSON payloads in a two-column
// bucket/payload table shared by the SQLite and Postgres progress stores.
package sqlstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"aligncore/pkg/domain"
)

// Row keys.
const (
	BucketProcessed = "processed"
	BucketDiscarded = "discarded"
)

// Dialect holds the backend specific statements.
type Dialect struct {
	DDL    string
	Select string
	Upsert string
}

// SQLite stores payloads as BLOBs.
var SQLite = Dialect{
	DDL: `CREATE TABLE IF NOT EXISTS progress (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	Select: `SELECT bucket, payload FROM progress WHERE bucket = ?`,
	Upsert: `INSERT INTO progress(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
}

// Postgres stores payloads as JSONB.
var Postgres = Dialect{
	DDL: `CREATE TABLE IF NOT EXISTS progress (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	Select: `SELECT bucket, payload FROM progress WHERE bucket = $1`,
	Upsert: `INSERT INTO progress(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
}

var _ domain.ProgressStore = (*State)(nil)

// State implements domain.ProgressStore over db.
type State struct {
	db      *sql.DB
	dialect Dialect
}

// New ensures the progress table exists.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*State, error) {
	if _, err := db.ExecContext(ctx, dialect.DDL); err != nil {
		return nil, fmt.Errorf("ensure progress table: %w", err)
	}
	return &State{db: db, dialect: dialect}, nil
}

// DB exposes the handle for tests.
func (s *State) DB() *sql.DB { return s.db }

// Close releases the handle.
func (s *State) Close() error { return s.db.Close() }

// LoadProcessed returns empty buckets when no row exists.
func (s *State) LoadProcessed(ctx context.Context) (domain.Processed, error) {
	processed := domain.NewProcessed()
	found, err := s.load(ctx, BucketProcessed, &processed)
	if err != nil || !found {
		return domain.NewProcessed(), err
	}
	return processed, nil
}

// SaveProcessed upserts the processed row.
func (s *State) SaveProcessed(ctx context.Context, processed domain.Processed) error {
	return s.save(ctx, BucketProcessed, processed)
}

// LoadDiscarded returns an empty set when no row exists.
func (s *State) LoadDiscarded(ctx context.Context) (domain.IDSet, error) {
	discarded := domain.NewIDSet()
	if _, err := s.load(ctx, BucketDiscarded, &discarded); err != nil {
		return domain.NewIDSet(), err
	}
	if discarded == nil {
		discarded = domain.NewIDSet()
	}
	return discarded, nil
}

// SaveDiscarded upserts the discarded row.
func (s *State) SaveDiscarded(ctx context.Context, discarded domain.IDSet) error {
	return s.save(ctx, BucketDiscarded, discarded)
}

func (s *State) load(ctx context.Context, bucket string, dst any) (bool, error) {
	var (
		name    string
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, s.dialect.Select, bucket).Scan(&name, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select %s: %w", bucket, err)
	}
	if len(payload) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", bucket, err)
	}
	return true, nil
}

func (s *State) save(ctx context.Context, bucket string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", bucket, err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, bucket, data); err != nil {
		return fmt.Errorf("upsert %s: %w", bucket, err)
	}
	return nil
}
