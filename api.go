package hanakv

import (
	"context"
	"iter"

	c "github.com/unkn0wn-root/hanakv/codec"
	st "github.com/unkn0wn-root/hanakv/store"
)

// Aliases so common wiring needs only the root import.
type (
	Store     = st.Store
	Entry     = st.Entry
	Logger    = st.Logger
	Fields    = st.Fields
	NopLogger = st.NopLogger
)

// KV is a typed pair at the cache surface. Key carries no namespace prefix.
type KV[V any] struct {
	Key   string
	Value V
}

// Item is one GetMany result slot. Found distinguishes a stored zero value
// from an absent key.
type Item[V any] struct {
	Value V
	Found bool
}

// Cache is the typed, namespaced API over a Store. V is the caller's value
// type; serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	// Get returns the value under key, or found=false when absent.
	Get(ctx context.Context, key string) (v V, found bool, err error)

	// Set stores value under key, inserting or replacing.
	Set(ctx context.Context, key string, value V) error

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (existed bool, err error)

	// Clear removes every key in this cache's namespace only.
	Clear(ctx context.Context) error

	// GetMany returns one Item per input key, in input order.
	GetMany(ctx context.Context, keys []string) ([]Item[V], error)

	// SetMany stores the entries one by one; a failure leaves earlier
	// entries committed.
	SetMany(ctx context.Context, entries []KV[V]) error

	// DeleteMany reports whether at least one key existed at check time.
	DeleteMany(ctx context.Context, keys []string) (bool, error)

	Has(ctx context.Context, key string) (bool, error)
	HasMany(ctx context.Context, keys []string) ([]bool, error)

	// All lazily yields this namespace's entries with the prefix stripped.
	All(ctx context.Context) iter.Seq2[KV[V], error]

	// Disconnect releases the backend. Terminal.
	Disconnect(ctx context.Context) error
}

// Options wires a Cache. Store and Codec are required; Namespace may be
// empty (no prefixing, All and the store's Clear cover every key).
//
// The Store should be configured with the same namespace so its Clear scopes
// correctly.
type Options[V any] struct {
	Namespace string
	Store     st.Store
	Codec     c.Codec[V]
	Logger    Logger // nil => NopLogger
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
