// Package kv is the device storage medium: a flat key space of byte values
// in which every store persists its snapshot under its own name.
package kv

import (
	"context"
)

// Repository is the storage medium contract.
//
// Get returns (nil, nil) for a missing key. List returns every key with its
// value; it is the only way to read across store namespaces.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	// ReplaceAll atomically swaps the whole key space for entries.
	ReplaceAll(ctx context.Context, entries map[string][]byte) error
}
