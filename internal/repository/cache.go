// Package repository defines data access interfaces for VibeVault.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for the playlist read cache.
// Implemented by Redis for multi-process deployments and by an in-memory
// map otherwise. The cache is an optimisation only: the playlist service
// invalidates the affected entry on every mutation, and a cold cache is
// always correct.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL. If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
