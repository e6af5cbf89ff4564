// Package blobstate persists progress as two JSON documents, processed.json
// and discarded.json, in a blob store.
package blobstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"aligncore/internal/blob"
	"aligncore/pkg/domain"
)

var _ domain.ProgressStore = (*Store)(nil)

const (
	// ProcessedKey names the processed buckets document.
	ProcessedKey = "processed.json"
	// DiscardedKey names the discarded ids document.
	DiscardedKey = "discarded.json"
)

// Store reads and writes the progress documents under an optional key prefix.
type Store struct {
	blobs  blob.Store
	prefix string
}

// New wraps blobs. A non-empty prefix is joined to the document names with a
// slash.
func New(blobs blob.Store, prefix string) *Store {
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return &Store{blobs: blobs, prefix: prefix}
}

// Key returns the full blob key for name.
func (s *Store) Key(name string) string { return s.prefix + name }

// LoadProcessed returns empty buckets when the document is absent.
func (s *Store) LoadProcessed(ctx context.Context) (domain.Processed, error) {
	processed := domain.NewProcessed()
	found, err := s.read(ctx, ProcessedKey, &processed)
	if err != nil || !found {
		return domain.NewProcessed(), err
	}
	return processed, nil
}

// SaveProcessed overwrites processed.json.
func (s *Store) SaveProcessed(ctx context.Context, processed domain.Processed) error {
	return s.write(ctx, ProcessedKey, processed)
}

// LoadDiscarded returns an empty set when the document is absent.
func (s *Store) LoadDiscarded(ctx context.Context) (domain.IDSet, error) {
	discarded := domain.NewIDSet()
	if _, err := s.read(ctx, DiscardedKey, &discarded); err != nil {
		return domain.NewIDSet(), err
	}
	if discarded == nil {
		discarded = domain.NewIDSet()
	}
	return discarded, nil
}

// SaveDiscarded overwrites discarded.json.
func (s *Store) SaveDiscarded(ctx context.Context, discarded domain.IDSet) error {
	return s.write(ctx, DiscardedKey, discarded)
}

func (s *Store) read(ctx context.Context, name string, dst any) (bool, error) {
	key := s.Key(name)
	_, rc, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, name string, v any) error {
	key := s.Key(name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	data = append(data, '\n')
	_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: "application/json", Overwrite: true})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
