// Package cache provides the ephemeral cache layer that sits in front of
// the archival store:
//
//	Session
//	  ├── cache.Cache  (ephemeral; TTL/eviction; fast reuse)
//	  └── store.Store  (immutable audit trail; append-only)
//
// Keys are deterministic request fingerprints. Entries may be evicted at
// any time; the archival store remains the canonical provenance record.
package cache

import "context"

// Cache is the minimal interface for ephemeral cache stores.
// Implementations must be safe for repeated gets and puts on the same key.
type Cache interface {
	// Get returns cached bytes if present and within ttlSeconds. A nil
	// ttlSeconds leaves freshness to the implementation, which usually
	// means always fresh. The second return value reports a hit.
	Get(ctx context.Context, key string, ttlSeconds *int64) ([]byte, bool, error)

	// Put stores bytes for the key, replacing any previous entry.
	Put(ctx context.Context, key string, data []byte) error
}
