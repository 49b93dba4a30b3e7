//go:build unit

package cache

import (
	"context"
	"go-ws-relay/internal/config"
	"testing"
	"time"
)

// newTestCache creates a new in-memory cache for testing.
func newTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()
	c, err := New(config.CacheConfig{FilePath: "file::memory:", TTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	return c, func() { c.Close() }
}

func TestCacheSetGet(t *testing.T) {
	c, teardown := newTestCache(t)
	defer teardown()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("want 'v'; got %q", got)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if got, _ := c.Get(ctx, "k"); got != nil {
		t.Errorf("want miss after delete; got %q", got)
	}
}

func TestCacheExpiredItemIsMiss(t *testing.T) {
	c, teardown := newTestCache(t)
	defer teardown()
	ctx := context.Background()

	if err := c.Set(ctx, "old", []byte("v"), -2*time.Second); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	got, err := c.Get(ctx, "old")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got != nil {
		t.Errorf("want miss for expired item; got %q", got)
	}
}

func TestCacheJSON(t *testing.T) {
	c, teardown := newTestCache(t)
	defer teardown()
	ctx := context.Background()

	type record struct {
		Subject string `json:"subject"`
	}
	if err := c.SetJSON(ctx, "user:alice", record{Subject: "alice"}); err != nil {
		t.Fatalf("SetJSON() returned error: %v", err)
	}

	var got record
	ok, err := c.GetJSON(ctx, "user:alice", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON() = (%v, %v); want hit", ok, err)
	}
	if got.Subject != "alice" {
		t.Errorf("want 'alice'; got %q", got.Subject)
	}

	if ok, _ := c.GetJSON(ctx, "user:nobody", &got); ok {
		t.Error("want miss for unknown key")
	}
}

func TestCachePurge(t *testing.T) {
	c, teardown := newTestCache(t)
	defer teardown()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), -2*time.Second)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)

	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge() returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("want 1 purged item; got %d", n)
	}
}
