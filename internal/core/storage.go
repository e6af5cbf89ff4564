package core

import (
	"context"
	"fmt"
	"io"

	"aligncore/internal/blob"
	"aligncore/internal/config"
	"aligncore/internal/infra/progress/blobstate"
	progressmemory "aligncore/internal/infra/progress/memory"
	progresspostgres "aligncore/internal/infra/progress/postgres"
	progresssqlite "aligncore/internal/infra/progress/sqlite"
	recordsmemory "aligncore/internal/infra/records/memory"
	recordspostgres "aligncore/internal/infra/records/postgres"
	recordssqlite "aligncore/internal/infra/records/sqlite"
	"aligncore/pkg/domain"
)

type (
	// RecordStore is the authoritative source of records.
	RecordStore = domain.RecordStore
	// ProgressStore persists processed buckets and discarded ids.
	ProgressStore = domain.ProgressStore
)

// OpenRecordStore selects a record backend. An empty driver means sqlite.
func OpenRecordStore(ctx context.Context, cfg config.RecordsConfig) (RecordStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.RecordsSQLite
	}
	switch driver {
	case config.RecordsMemory:
		return recordsmemory.New(), nil
	case config.RecordsSQLite:
		return recordssqlite.NewStore(ctx, cfg.SQLitePath, cfg.Table)
	case config.RecordsPostgres:
		return recordspostgres.NewStore(ctx, cfg.PostgresDSN, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown records driver %s", driver)
	}
}

// OpenProgressStore selects a progress backend. An empty driver means blob.
func OpenProgressStore(ctx context.Context, cfg config.ProgressConfig) (ProgressStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.ProgressBlob
	}
	switch driver {
	case config.ProgressMemory:
		return progressmemory.New(domain.NewProgress()), nil
	case config.ProgressBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, err
		}
		return blobstate.New(blobs, cfg.Blob.Prefix), nil
	case config.ProgressSQLite:
		return progresssqlite.NewStore(ctx, cfg.SQLitePath)
	case config.ProgressPostgres:
		return progresspostgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown progress driver %s", driver)
	}
}

// CloseStore closes store when its backend holds resources.
func CloseStore(store any) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
