// Package memory keeps progress in process memory.
package memory

import (
	"context"
	"sync"

	"aligncore/pkg/domain"
)

var _ domain.ProgressStore = (*Store)(nil)

// Store holds deep copies of the last saved structures.
type Store struct {
	mu        sync.RWMutex
	processed domain.Processed
	discarded domain.IDSet
}

// New returns a store seeded with p.
func New(p domain.Progress) *Store {
	p = p.Clone()
	return &Store{processed: p.Processed, discarded: p.Discarded}
}

// LoadProcessed returns a copy of the processed buckets.
func (s *Store) LoadProcessed(context.Context) (domain.Processed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processed.Clone(), nil
}

// SaveProcessed replaces the processed buckets.
func (s *Store) SaveProcessed(_ context.Context, processed domain.Processed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = processed.Clone()
	return nil
}

// LoadDiscarded returns a copy of the discarded set.
func (s *Store) LoadDiscarded(context.Context) (domain.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discarded.Clone(), nil
}

// SaveDiscarded replaces the discarded set.
func (s *Store) SaveDiscarded(_ context.Context, discarded domain.IDSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = discarded.Clone()
	return nil
}
