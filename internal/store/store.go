// Package store is the hierarchical document store every handler reads and
// writes. Documents are keyed by slash-separated paths and merged key-wise,
// last write wins per key.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Document pairs a path with its stored fields.
type Document struct {
	Path string
	Doc  map[string]any
}

type Store interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (map[string]any, error)
	// Set overwrites the document at path.
	Set(ctx context.Context, path string, doc map[string]any) error
	// Merge upserts path, overwriting only the keys present in patch.
	Merge(ctx context.Context, path string, patch map[string]any) error
	// Delete removes the document at path. Deleting a missing path is a no-op.
	Delete(ctx context.Context, path string) error
	// Consume atomically reads and deletes the document at path. This is the
	// single-use read: concurrent consumers see at most one success.
	Consume(ctx context.Context, path string) (map[string]any, error)
	// List returns the direct children of a collection prefix.
	List(ctx context.Context, prefix string) ([]Document, error)
	// WithTx runs fn with a store whose writes commit atomically.
	WithTx(ctx context.Context, fn func(Store) error) error
}
