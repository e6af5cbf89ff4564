// Package memory implements an in-process record store for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"aligncore/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

// Store keeps records in insertion order.
type Store struct {
	mu      sync.RWMutex
	order   []string
	records map[string]domain.Record
}

// New returns a store seeded with records.
func New(records ...domain.Record) *Store {
	s := &Store{records: make(map[string]domain.Record, len(records))}
	for _, rec := range records {
		_ = s.PutRecord(context.Background(), rec)
	}
	return s
}

// ListRecords returns every record in insertion order.
func (s *Store) ListRecords(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

// GetRecord returns the record for id.
func (s *Store) GetRecord(_ context.Context, id string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownRecord, id)
	}
	return rec, nil
}

// SetTargetBlock replaces the current block for lang.
func (s *Store) SetTargetBlock(_ context.Context, id string, lang domain.Language, block string) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidLanguage, lang)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownRecord, id)
	}
	s.records[id] = rec.WithTarget(lang, block)
	return nil
}

// PutRecord inserts or replaces rec.
func (s *Store) PutRecord(_ context.Context, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}
