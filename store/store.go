// Package store defines the byte-level storage contract shared by all hanakv
// backends.
//
// Implementations MUST be value-transparent: Get must return exactly the same
// []byte previously passed to Set for a key. Values are opaque at this layer;
// serialization belongs to the codec layer above.
//
// Keys arriving at the single and batch operations are already fully
// qualified (namespace prefix included). The namespace a store is configured
// with scopes only Clear; Iterate takes the namespace explicitly because
// callers may scan a different one.
package store

import (
	"context"
	"iter"
)

// Entry is one stored (key, value) pair as it appears in the backend,
// i.e. with the fully qualified key.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a namespaced byte store without expiry. Entries persist until
// explicitly deleted or cleared; TTL semantics, if any, live in the layer
// plugging a Store in.
//
// Implementations must be safe for concurrent use, with one exception:
// Disconnect must not be called while other operations are in flight.
// After Disconnect every operation fails with ErrNotReady.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, inserting or replacing in a single step
	// (no read-before-write).
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key and reports whether it existed. Deleting a missing
	// key returns (false, nil).
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every key under the store's configured namespace, or all
	// keys when no namespace is set.
	Clear(ctx context.Context) error

	// GetMany returns one slot per input key, in input order. A nil slot
	// means the key was absent. Empty input returns an empty result without
	// touching the backend.
	GetMany(ctx context.Context, keys []string) ([][]byte, error)

	// SetMany applies Set once per entry, sequentially. It is not atomic:
	// a failure partway through leaves earlier entries committed.
	SetMany(ctx context.Context, entries []Entry) error

	// DeleteMany removes the given keys and reports whether at least one of
	// them existed when the call checked.
	DeleteMany(ctx context.Context, keys []string) (bool, error)

	// Has reports whether key exists without transferring its value.
	Has(ctx context.Context, key string) (bool, error)

	// HasMany reports existence per input key, in input order.
	HasMany(ctx context.Context, keys []string) ([]bool, error)

	// Iterate yields the (key, value) pairs under namespace (all keys when
	// namespace is empty). The sequence is lazy: backends that page fetch
	// the next batch only once the current one is consumed. Each call starts
	// a fresh scan; stopping early simply stops fetching.
	Iterate(ctx context.Context, namespace string) iter.Seq2[Entry, error]

	// Disconnect releases the underlying session. It is terminal: the store
	// does not reconnect, and later operations fail with ErrNotReady.
	Disconnect(ctx context.Context) error
}
