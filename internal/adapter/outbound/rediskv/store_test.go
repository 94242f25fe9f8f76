package rediskv

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/medistore/medistore/internal/domain/storage"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return New(rdb, opts...), mr
}

func TestStore_SetGetRemove(t *testing.T) {
	s, mr := newTestStore(t)

	if err := s.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if err := s.SetString(storage.KeyAuthToken, "tok123"); err != nil {
		t.Fatalf("SetString() error: %v", err)
	}
	if got, _ := mr.Get("medistore:kv:" + storage.KeyAuthToken); got != "tok123" {
		t.Errorf("raw redis value = %q, want tok123", got)
	}

	v, ok, err := s.GetString(storage.KeyAuthToken)
	if err != nil || !ok || v != "tok123" {
		t.Errorf("GetString() = (%q, %v, %v), want (tok123, true, nil)", v, ok, err)
	}

	existed, err := s.Remove(storage.KeyAuthToken)
	if err != nil || !existed {
		t.Errorf("Remove() = (%v, %v), want (true, nil)", existed, err)
	}
	if _, ok, _ := s.GetString(storage.KeyAuthToken); ok {
		t.Error("expected key to be absent after Remove")
	}
}

func TestStore_EmptyValueIsPresent(t *testing.T) {
	s, _ := newTestStore(t)
	_ = s.SetString("k", "")

	if ok, _ := s.Contains("k"); !ok {
		t.Error("Contains() = false for empty value")
	}
}

func TestStore_ClearAllOnlyTouchesPrefix(t *testing.T) {
	s, mr := newTestStore(t, WithPrefix("test:"))
	_ = mr.Set("other:key", "keep")
	for _, k := range []string{"b", "a"} {
		_ = s.SetString(k, "x")
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	if strings.Join(keys, ",") != "a,b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}
	if keys, _ := s.Keys(); len(keys) != 0 {
		t.Errorf("expected no keys after ClearAll, got %v", keys)
	}
	if !mr.Exists("other:key") {
		t.Error("ClearAll() removed a key outside its prefix")
	}
}

func TestStore_UnreachableServerReturnsError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	s := New(rdb, WithOpTimeout(200*time.Millisecond))
	mr.Close()

	if _, _, err := s.GetString("k"); err == nil {
		t.Error("expected error when redis is unreachable")
	}
	if _, ok := storage.GetObject[map[string]string](s, "k"); ok {
		t.Error("GetObject() should report absent when redis is unreachable")
	}
}
