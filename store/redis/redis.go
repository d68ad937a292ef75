// Package redis implements the hanakv store contract on top of go-redis.
//
// Unlike the HANA store, Iterate streams SCAN pages, so ordering is only
// guaranteed within a page, and keys written during the scan may or may not
// be observed. Everything else follows the shared contract.
package redis

import (
	"context"
	"errors"
	"iter"
	"sort"
	"strings"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/hanakv/store"
)

// DefaultScanCount is the per-page hint for SCAN-backed Clear and Iterate.
const DefaultScanCount = 10

var ErrNilClient = errors.New("redis store: nil client")

type Config struct {
	Client goredis.UniversalClient

	// Namespace scopes Clear, mirroring the HANA store.
	Namespace string

	// ScanCount hints how many keys a SCAN page should carry. Non-positive
	// values fall back to DefaultScanCount.
	ScanCount int64

	// CloseClient makes Disconnect close the client. Set it only when this
	// store exclusively owns the client.
	CloseClient bool
}

type Store struct {
	rdb         goredis.UniversalClient
	ns          string
	scanCount   int64
	closeClient bool
	closed      atomic.Bool
}

var _ store.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	count := cfg.ScanCount
	if count <= 0 {
		count = DefaultScanCount
	}
	return &Store{
		rdb:         cfg.Client,
		ns:          cfg.Namespace,
		scanCount:   count,
		closeClient: cfg.CloseClient,
	}, nil
}

func (s *Store) ready() error {
	if s.closed.Load() {
		return store.ErrNotReady
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &store.ExecutionError{Op: "get", Err: err}
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	// TTL 0: entries persist until deleted, per the contract.
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return &store.ExecutionError{Op: "set", Err: err}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, &store.ExecutionError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	match := scanPattern(s.ns)
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, s.scanCount).Result()
		if err != nil {
			return &store.ExecutionError{Op: "clear", Err: err}
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return &store.ExecutionError{Op: "clear", Err: err}
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *Store) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, &store.ExecutionError{Op: "getMany", Err: err}
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
			// missing key keeps its nil slot
		case string:
			out[i] = []byte(vv)
		case []byte:
			out[i] = vv
		}
	}
	return out, nil
}

func (s *Store) SetMany(ctx context.Context, entries []store.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, e := range entries {
			p.Set(ctx, e.Key, e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return &store.ExecutionError{Op: "setMany", Err: err}
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return false, &store.ExecutionError{Op: "deleteMany", Err: err}
	}
	return n > 0, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, &store.ExecutionError{Op: "has", Err: err}
	}
	return n > 0, nil
}

func (s *Store) HasMany(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	cmds := make([]*goredis.IntCmd, len(keys))
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.Exists(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, &store.ExecutionError{Op: "hasMany", Err: err}
	}
	for i, cmd := range cmds {
		out[i] = cmd.Val() > 0
	}
	return out, nil
}

// Iterate walks SCAN pages under namespace, sorting each page and fetching
// its values with one MGET before yielding.
func (s *Store) Iterate(ctx context.Context, namespace string) iter.Seq2[store.Entry, error] {
	match := scanPattern(namespace)
	return func(yield func(store.Entry, error) bool) {
		if err := s.ready(); err != nil {
			yield(store.Entry{}, err)
			return
		}
		var cursor uint64
		for {
			keys, next, err := s.rdb.Scan(ctx, cursor, match, s.scanCount).Result()
			if err != nil {
				yield(store.Entry{}, &store.ExecutionError{Op: "iterate", Err: err})
				return
			}
			if len(keys) > 0 {
				sort.Strings(keys)
				vals, err := s.GetMany(ctx, keys)
				if err != nil {
					yield(store.Entry{}, err)
					return
				}
				for i, k := range keys {
					if vals[i] == nil {
						continue // deleted between SCAN and MGET
					}
					if !yield(store.Entry{Key: k, Value: vals[i]}, nil) {
						return
					}
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

// Disconnect latches the terminal state and closes the client only when this
// store owns it. Safe to call multiple times.
func (s *Store) Disconnect(context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return &store.ExecutionError{Op: "disconnect", Err: err}
	}
	return nil
}

// scanPattern is the glob analogue of the HANA store's LIKE prefix pattern:
// reserved glob characters in the namespace are escaped so they match
// literally.
func scanPattern(namespace string) string {
	if namespace == "" {
		return "*"
	}
	return globEscape(namespace) + ":*"
}

func globEscape(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
