// Package memory implements the hanakv store contract in process, on top of
// allegro/bigcache. It backs tests and deployments that want the contract
// without a database. Entries do not expire in practice (the eviction window
// is set far in the future unless configured otherwise).
package memory

import (
	"context"
	"errors"
	"iter"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/hanakv/store"
)

// noExpiry is the life window used when none is configured. bigcache demands
// a positive window, so "never" is approximated with a century.
const noExpiry = 100 * 365 * 24 * time.Hour

type Config struct {
	// Namespace scopes Clear, mirroring the HANA store.
	Namespace string

	// LifeWindow is bigcache's global entry lifetime. Zero means effectively
	// no expiry.
	LifeWindow time.Duration

	// CleanWindow, MaxEntrySize and HardMaxCacheSizeMB tune the underlying
	// cache; zero keeps bigcache's defaults.
	CleanWindow        time.Duration
	MaxEntrySize       int
	HardMaxCacheSizeMB int
}

type Store struct {
	ns     string
	c      *bc.BigCache
	closed atomic.Bool
}

var _ store.Store = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = noExpiry
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Store{ns: cfg.Namespace, c: c}, nil
}

func (s *Store) ready() error {
	if s.closed.Load() {
		return store.ErrNotReady
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &store.ExecutionError{Op: "get", Err: err}
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.c.Set(key, value); err != nil {
		return &store.ExecutionError{Op: "set", Err: err}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &store.ExecutionError{Op: "delete", Err: err}
	}
	return true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.ns == "" {
		if err := s.c.Reset(); err != nil {
			return &store.ExecutionError{Op: "clear", Err: err}
		}
		return nil
	}
	keys, err := s.matchingKeys(s.ns)
	if err != nil {
		return &store.ExecutionError{Op: "clear", Err: err}
	}
	for _, k := range keys {
		if err := s.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			return &store.ExecutionError{Op: "clear", Err: err}
		}
	}
	return nil
}

func (s *Store) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	for i, k := range keys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

func (s *Store) SetMany(ctx context.Context, entries []store.Entry) error {
	for _, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) (bool, error) {
	existed := false
	for _, k := range keys {
		ok, err := s.Delete(ctx, k)
		if err != nil {
			return existed, err
		}
		existed = existed || ok
	}
	return existed, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Store) HasMany(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, k := range keys {
		ok, err := s.Has(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

// Iterate snapshots the matching keys, sorts them ascending and replays
// values lazily, mirroring the ordering guarantee of the HANA store.
func (s *Store) Iterate(_ context.Context, namespace string) iter.Seq2[store.Entry, error] {
	return func(yield func(store.Entry, error) bool) {
		if err := s.ready(); err != nil {
			yield(store.Entry{}, err)
			return
		}
		keys, err := s.matchingKeys(namespace)
		if err != nil {
			yield(store.Entry{}, &store.ExecutionError{Op: "iterate", Err: err})
			return
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, err := s.c.Get(k)
			if errors.Is(err, bc.ErrEntryNotFound) {
				continue // deleted since the snapshot
			}
			if err != nil {
				yield(store.Entry{}, &store.ExecutionError{Op: "iterate", Err: err})
				return
			}
			if !yield(store.Entry{Key: k, Value: v}, nil) {
				return
			}
		}
	}
}

func (s *Store) matchingKeys(namespace string) ([]string, error) {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	var keys []string
	it := s.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(e.Key(), prefix) {
			keys = append(keys, e.Key())
		}
	}
	return keys, nil
}

func (s *Store) Disconnect(context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.c.Close()
}
