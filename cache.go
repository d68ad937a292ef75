package hanakv

import (
	"context"
	"fmt"
	"iter"

	c "github.com/unkn0wn-root/hanakv/codec"
	"github.com/unkn0wn-root/hanakv/internal/keys"
	st "github.com/unkn0wn-root/hanakv/store"
)

type cache[V any] struct {
	ns    string
	store st.Store
	codec c.Codec[V]
	log   Logger
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("hanakv: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("hanakv: codec is required")
	}
	return &cache[V]{
		ns:    opts.Namespace,
		store: opts.Store,
		codec: opts.Codec,
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
	}, nil
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := c.store.Get(ctx, c.id(key))
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		return zero, false, c.decodeErr(key, err)
	}
	return v, true, nil
}

func (c *cache[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := c.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("hanakv: encode %q: %w", key, err)
	}
	return c.store.Set(ctx, c.id(key), raw)
}

func (c *cache[V]) Delete(ctx context.Context, key string) (bool, error) {
	return c.store.Delete(ctx, c.id(key))
}

func (c *cache[V]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *cache[V]) GetMany(ctx context.Context, ks []string) ([]Item[V], error) {
	out := make([]Item[V], len(ks))
	if len(ks) == 0 {
		return out, nil
	}
	raws, err := c.store.GetMany(ctx, keys.CompositeAll(c.ns, ks))
	if err != nil {
		return nil, err
	}
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		v, err := c.codec.Decode(raw)
		if err != nil {
			return nil, c.decodeErr(ks[i], err)
		}
		out[i] = Item[V]{Value: v, Found: true}
	}
	return out, nil
}

func (c *cache[V]) SetMany(ctx context.Context, entries []KV[V]) error {
	if len(entries) == 0 {
		return nil
	}
	encoded := make([]st.Entry, len(entries))
	for i, e := range entries {
		raw, err := c.codec.Encode(e.Value)
		if err != nil {
			return fmt.Errorf("hanakv: encode %q: %w", e.Key, err)
		}
		encoded[i] = st.Entry{Key: c.id(e.Key), Value: raw}
	}
	return c.store.SetMany(ctx, encoded)
}

func (c *cache[V]) DeleteMany(ctx context.Context, ks []string) (bool, error) {
	if len(ks) == 0 {
		return false, nil
	}
	return c.store.DeleteMany(ctx, keys.CompositeAll(c.ns, ks))
}

func (c *cache[V]) Has(ctx context.Context, key string) (bool, error) {
	return c.store.Has(ctx, c.id(key))
}

func (c *cache[V]) HasMany(ctx context.Context, ks []string) ([]bool, error) {
	if len(ks) == 0 {
		return []bool{}, nil
	}
	return c.store.HasMany(ctx, keys.CompositeAll(c.ns, ks))
}

func (c *cache[V]) All(ctx context.Context) iter.Seq2[KV[V], error] {
	return func(yield func(KV[V], error) bool) {
		for e, err := range c.store.Iterate(ctx, c.ns) {
			if err != nil {
				yield(KV[V]{}, err)
				return
			}
			v, err := c.codec.Decode(e.Value)
			if err != nil {
				yield(KV[V]{}, c.decodeErr(e.Key, err))
				return
			}
			if !yield(KV[V]{Key: keys.Strip(c.ns, e.Key), Value: v}, nil) {
				return
			}
		}
	}
}

func (c *cache[V]) Disconnect(ctx context.Context) error {
	return c.store.Disconnect(ctx)
}

func (c *cache[V]) id(key string) string {
	return keys.Composite(c.ns, key)
}

func (c *cache[V]) decodeErr(key string, err error) error {
	c.log.Warn("value decode failed", Fields{"key": key, "err": err})
	return fmt.Errorf("hanakv: decode %q: %w", key, err)
}
