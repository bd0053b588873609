// Package cache persists chunk fetch results across runs. The store is the
// pipeline's resumability mechanism: a chunk fetched once is never fetched
// again unless its entry is purged, so an interrupted study picks up where
// it stopped instead of re-downloading the whole range.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/avelek/newspulse/pkg/models"
)

// Entry is one persisted chunk result. Written once per successful fetch,
// read before every fetch on later runs, overwritten wholesale on re-fetch.
type Entry struct {
	Chunk     models.Chunk     `json:"chunk"`
	Result    models.RawResult `json:"result"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Store is durable chunk-keyed storage. Implementations must tolerate
// concurrent writes to different keys; writes to the same key never race
// because chunk identity partitions the fetch work.
type Store interface {
	// Get returns the entry for key, reporting whether one exists.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Put writes the entry for key, overwriting any previous entry.
	Put(ctx context.Context, key string, e Entry) error

	// Delete removes the entry for key if present.
	Delete(ctx context.Context, key string) error

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)

	// Purge removes every entry.
	Purge(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}

// Key builds the store key for a chunk within a study namespace. The
// namespace carries the filter identity (keyword, ticker), so two studies
// with different filters never reuse each other's entries.
func Key(namespace string, c models.Chunk) string {
	if namespace == "" {
		return c.Key()
	}
	return namespace + "/" + c.Key()
}

// Backend names accepted by Open.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open constructs the store for the configured backend. The files backend
// treats path as a directory root; sqlite treats it as the database file.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFiles, "":
		return NewFSStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
