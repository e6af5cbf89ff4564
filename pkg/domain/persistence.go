package domain

import "context"

// RecordStore is the authoritative store of records.
type RecordStore interface {
	// ListRecords returns every record in stable storage order.
	ListRecords(ctx context.Context) ([]Record, error)
	// GetRecord returns ErrUnknownRecord when id is absent.
	GetRecord(ctx context.Context, id string) (Record, error)
	// SetTargetBlock replaces the current target block for lang.
	SetTargetBlock(ctx context.Context, id string, lang Language, block string) error
}

// ProgressStore persists the processed buckets and discarded set. Each
// structure is loaded and saved as a whole.
type ProgressStore interface {
	LoadProcessed(ctx context.Context) (Processed, error)
	SaveProcessed(ctx context.Context, processed Processed) error
	LoadDiscarded(ctx context.Context) (IDSet, error)
	SaveDiscarded(ctx context.Context, discarded IDSet) error
}

// LoadProgress reads both progress structures from store.
func LoadProgress(ctx context.Context, store ProgressStore) (Progress, error) {
	processed, err := store.LoadProcessed(ctx)
	if err != nil {
		return Progress{}, err
	}
	discarded, err := store.LoadDiscarded(ctx)
	if err != nil {
		return Progress{}, err
	}
	if discarded == nil {
		discarded = make(IDSet)
	}
	return Progress{Processed: processed.normalize(), Discarded: discarded}, nil
}

// SaveProgress writes both structures so the stored pair stays consistent.
func SaveProgress(ctx context.Context, store ProgressStore, p Progress) error {
	if err := store.SaveDiscarded(ctx, p.Discarded); err != nil {
		return err
	}
	return store.SaveProcessed(ctx, p.Processed)
}
