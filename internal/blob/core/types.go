// Package core defines the abstraction for media holding whole documents,
// used by the file-backed storage to keep its JSON document.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// Store reads and writes whole documents by key. Writes overwrite.
type Store interface {
	// Get returns the document stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the document stored at key.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the document. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// Driver returns the configured backend driver.
	Driver() Driver
}

// ErrNotFound is returned when no document exists at a key.
var ErrNotFound = errors.New("blobstore: not found")
