package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/hanakv/store"
)

func newStore(t *testing.T, ns string) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{Namespace: ns})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Disconnect(context.Background()) })
	return s
}

func TestRoundTripAndOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "ns")

	if _, ok, err := s.Get(ctx, "ns:k"); err != nil || ok {
		t.Fatalf("miss expected: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "ns:k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "ns:k")
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := s.Set(ctx, "ns:k", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.Get(ctx, "ns:k"); string(v) != "v2" {
		t.Fatalf("overwrite not visible: %q", v)
	}
}

func TestDeleteSemantics(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "ns")

	if err := s.Set(ctx, "ns:k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if existed, err := s.Delete(ctx, "ns:k"); err != nil || !existed {
		t.Fatalf("Delete existing: existed=%v err=%v", existed, err)
	}
	if _, ok, _ := s.Get(ctx, "ns:k"); ok {
		t.Fatal("key survived delete")
	}
	if existed, err := s.Delete(ctx, "ns:k"); err != nil || existed {
		t.Fatalf("Delete missing: existed=%v err=%v", existed, err)
	}
}

func TestClearScopesToNamespace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "a")

	for _, k := range []string{"a:1", "a:2", "b:1"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, k := range []string{"a:1", "a:2"} {
		if _, ok, _ := s.Get(ctx, k); ok {
			t.Fatalf("%s survived Clear", k)
		}
	}
	if _, ok, _ := s.Get(ctx, "b:1"); !ok {
		t.Fatal("foreign namespace was cleared")
	}
}

func TestBatchOperations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "ns")

	err := s.SetMany(ctx, []store.Entry{
		{Key: "ns:a", Value: []byte("1")},
		{Key: "ns:b", Value: []byte("2")},
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	got, err := s.GetMany(ctx, []string{"ns:a", "ns:b", "ns:c"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if string(got[0]) != "1" || string(got[1]) != "2" || got[2] != nil {
		t.Fatalf("GetMany projection: %q", got)
	}

	has, err := s.HasMany(ctx, []string{"ns:a", "ns:b", "ns:c"})
	if err != nil || !has[0] || !has[1] || has[2] {
		t.Fatalf("HasMany: %v err=%v", has, err)
	}

	existed, err := s.DeleteMany(ctx, []string{"ns:a", "ns:missing"})
	if err != nil || !existed {
		t.Fatalf("DeleteMany: existed=%v err=%v", existed, err)
	}
	if existed, _ := s.DeleteMany(ctx, []string{"ns:missing"}); existed {
		t.Fatal("DeleteMany of missing keys reported existence")
	}
}

func TestIterateSortedWithinNamespace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "ns")

	for _, kv := range [][2]string{{"ns:c", "3"}, {"ns:a", "1"}, {"other:x", "9"}, {"ns:b", "2"}} {
		if err := s.Set(ctx, kv[0], []byte(kv[1])); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	var keys []string
	for e, err := range s.Iterate(ctx, "ns") {
		if err != nil {
			t.Fatalf("Iterate: %v", err)
		}
		keys = append(keys, e.Key)
	}
	want := []string{"ns:a", "ns:b", "ns:c"}
	if len(keys) != len(want) {
		t.Fatalf("want %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("want %v, got %v", want, keys)
		}
	}
}

func TestDisconnectIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "ns")

	if err := s.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, _, err := s.Get(ctx, "ns:k"); !errors.Is(err, store.ErrNotReady) {
		t.Fatalf("want ErrNotReady, got %v", err)
	}
	if err := s.Set(ctx, "ns:k", nil); !errors.Is(err, store.ErrNotReady) {
		t.Fatalf("want ErrNotReady, got %v", err)
	}
}
