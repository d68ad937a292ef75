package hanakv

import (
	"context"
	"errors"
	"iter"
	"sort"
	"strings"
	"testing"

	c "github.com/unkn0wn-root/hanakv/codec"
	st "github.com/unkn0wn-root/hanakv/store"
)

// fakeStore is a map-backed store.Store used to exercise the front without
// a backend.
type fakeStore struct {
	ns     string
	m      map[string][]byte
	closed bool
}

var _ st.Store = (*fakeStore)(nil)

func newFakeStore(ns string) *fakeStore {
	return &fakeStore{ns: ns, m: make(map[string][]byte)}
}

func (p *fakeStore) ready() error {
	if p.closed {
		return st.ErrNotReady
	}
	return nil
}

func (p *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := p.ready(); err != nil {
		return nil, false, err
	}
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *fakeStore) Set(_ context.Context, key string, value []byte) error {
	if err := p.ready(); err != nil {
		return err
	}
	p.m[key] = value
	return nil
}

func (p *fakeStore) Delete(_ context.Context, key string) (bool, error) {
	if err := p.ready(); err != nil {
		return false, err
	}
	_, ok := p.m[key]
	delete(p.m, key)
	return ok, nil
}

func (p *fakeStore) Clear(context.Context) error {
	if err := p.ready(); err != nil {
		return err
	}
	prefix := ""
	if p.ns != "" {
		prefix = p.ns + ":"
	}
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			delete(p.m, k)
		}
	}
	return nil
}

func (p *fakeStore) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, ok, err := p.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

func (p *fakeStore) SetMany(ctx context.Context, entries []st.Entry) error {
	for _, e := range entries {
		if err := p.Set(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeStore) DeleteMany(ctx context.Context, keys []string) (bool, error) {
	existed := false
	for _, k := range keys {
		ok, err := p.Delete(ctx, k)
		if err != nil {
			return existed, err
		}
		existed = existed || ok
	}
	return existed, nil
}

func (p *fakeStore) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *fakeStore) HasMany(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, k := range keys {
		ok, err := p.Has(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

func (p *fakeStore) Iterate(_ context.Context, namespace string) iter.Seq2[st.Entry, error] {
	return func(yield func(st.Entry, error) bool) {
		if err := p.ready(); err != nil {
			yield(st.Entry{}, err)
			return
		}
		prefix := ""
		if namespace != "" {
			prefix = namespace + ":"
		}
		var ks []string
		for k := range p.m {
			if strings.HasPrefix(k, prefix) {
				ks = append(ks, k)
			}
		}
		sort.Strings(ks)
		for _, k := range ks {
			if !yield(st.Entry{Key: k, Value: p.m[k]}, nil) {
				return
			}
		}
	}
}

func (p *fakeStore) Disconnect(context.Context) error {
	p.closed = true
	return nil
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T, ns string, fs *fakeStore) Cache[user] {
	t.Helper()
	cc, err := New[user](Options[user]{
		Namespace: ns,
		Store:     fs,
		Codec:     c.JSON[user]{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New[user](Options[user]{Codec: c.JSON[user]{}}); err == nil {
		t.Fatal("missing store should fail")
	}
	if _, err := New[user](Options[user]{Store: newFakeStore("")}); err == nil {
		t.Fatal("missing codec should fail")
	}
}

func TestRoundTripPrefixesKeys(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore("user")
	cc := newTestCache(t, "user", fs)

	v := user{ID: "1", Name: "Ada"}
	if err := cc.Set(ctx, "u:1", v); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// The backend sees the composite id, not the raw key.
	if _, ok := fs.m["user:u:1"]; !ok {
		t.Fatalf("expected composite id in store, have %v", fs.m)
	}

	got, ok, err := cc.Get(ctx, "u:1")
	if err != nil || !ok || got != v {
		t.Fatalf("Get: got=%v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := cc.Get(ctx, "u:2"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestDeleteAndHas(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "user", newFakeStore("user"))

	if err := cc.Set(ctx, "k", user{ID: "1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ok, err := cc.Has(ctx, "k"); err != nil || !ok {
		t.Fatalf("Has: ok=%v err=%v", ok, err)
	}
	if existed, err := cc.Delete(ctx, "k"); err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	if existed, err := cc.Delete(ctx, "k"); err != nil || existed {
		t.Fatalf("Delete missing: existed=%v err=%v", existed, err)
	}
}

func TestGetManyProjection(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "user", newFakeStore("user"))

	err := cc.SetMany(ctx, []KV[user]{
		{Key: "a", Value: user{ID: "1"}},
		{Key: "b", Value: user{ID: "2"}},
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	items, err := cc.GetMany(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if !items[0].Found || items[1].Found || !items[2].Found {
		t.Fatalf("found flags wrong: %+v", items)
	}
	if items[0].Value.ID != "1" || items[2].Value.ID != "2" {
		t.Fatalf("values wrong: %+v", items)
	}

	flags, err := cc.HasMany(ctx, []string{"a", "missing", "b"})
	if err != nil || !flags[0] || flags[1] || !flags[2] {
		t.Fatalf("HasMany: %v err=%v", flags, err)
	}
}

func TestClearLeavesOtherNamespaces(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore("a")
	ca := newTestCache(t, "a", fs)

	// Another namespace sharing the backend.
	fs.m["b:k"] = []byte(`{"id":"9"}`)

	if err := ca.Set(ctx, "k", user{ID: "1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := ca.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := ca.Get(ctx, "k"); ok {
		t.Fatal("own namespace survived Clear")
	}
	if _, ok := fs.m["b:k"]; !ok {
		t.Fatal("foreign namespace was cleared")
	}
}

func TestAllStripsNamespace(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore("user")
	cc := newTestCache(t, "user", fs)

	fs.m["other:x"] = []byte(`{"id":"x"}`)
	for _, k := range []string{"b", "a"} {
		if err := cc.Set(ctx, k, user{ID: k}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	var got []KV[user]
	for kv, err := range cc.All(ctx) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		got = append(got, kv)
	}
	if len(got) != 2 || got[0].Key != "a" || got[1].Key != "b" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if got[0].Value.ID != "a" || got[1].Value.ID != "b" {
		t.Fatalf("unexpected values: %+v", got)
	}
}

func TestAllSurfacesDecodeError(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore("user")
	cc := newTestCache(t, "user", fs)

	fs.m["user:bad"] = []byte("not json")

	var sawErr bool
	for _, err := range cc.All(ctx) {
		if err != nil {
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatal("corrupt entry did not surface an error")
	}
}

func TestDisconnectPropagates(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore("user")
	cc := newTestCache(t, "user", fs)

	if err := cc.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, _, err := cc.Get(ctx, "k"); !errors.Is(err, st.ErrNotReady) {
		t.Fatalf("want ErrNotReady, got %v", err)
	}
	if err := cc.Set(ctx, "k", user{}); !errors.Is(err, st.ErrNotReady) {
		t.Fatalf("want ErrNotReady, got %v", err)
	}
}
