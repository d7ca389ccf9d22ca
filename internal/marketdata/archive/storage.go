// internal/marketdata/archive/storage.go

// Package archive serves candle CSV files from a blob store.
package archive

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read for a missing object.
var ErrNotFound = errors.New("archive: object not found")

// Storage is a flat key/value blob store. Keys use forward slashes.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error
	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}
