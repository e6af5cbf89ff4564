package blob

import (
	"context"
	"fmt"

	"aligncore/internal/config"
	"aligncore/internal/infra/blob/fs"
	"aligncore/internal/infra/blob/memory"
	"aligncore/internal/infra/blob/s3"
)

// Open selects a Store implementation from cfg. An empty driver means fs.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memory.New() }

// NewMockS3ForTests exposes the S3 driver over a fake transport for
// cross-package tests.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }
