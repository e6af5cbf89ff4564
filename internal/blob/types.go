// Package blob is the entry point to the blob storage drivers. Callers depend
// on the Store interface and obtain implementations through Open.
package blob

import (
	"aligncore/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound is returned for absent keys.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned by create-only puts on present keys.
	ErrExists = core.ErrExists
)
