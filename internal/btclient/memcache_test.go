package btclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bulktracker/btdash/internal/testutil"
)

func TestClientUsesMemoryCacheWithoutStore(t *testing.T) {
	up := testutil.NewUpstream(t)
	up.JSON("/json/dir/", `["graphics/","net/"]`)

	c, err := New(up.URL(), Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := FetchList[string](context.Background(), c, CategoriesPath); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if hits := up.Hits("/json/dir/"); hits != 1 {
		t.Fatalf("expected one upstream hit, got %d", hits)
	}
	if n := c.MemoryEntries(); n != 1 {
		t.Fatalf("expected one in-process entry, got %d", n)
	}

	later := time.Now().Add(2 * time.Minute)
	c.now = func() time.Time { return later }
	if _, err := FetchList[string](context.Background(), c, CategoriesPath); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if hits := up.Hits("/json/dir/"); hits != 2 {
		t.Fatalf("expected refetch after ttl, got %d hits", hits)
	}
}

func TestClientWithoutTTLDoesNotCache(t *testing.T) {
	up := testutil.NewUpstream(t)
	up.JSON("/json/dir/", `[]`)

	c, err := New(up.URL(), Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), CategoriesPath); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if hits := up.Hits("/json/dir/"); hits != 2 {
		t.Fatalf("expected uncached fetches, got %d hits", hits)
	}
	if c.MemoryEntries() != -1 || c.SweepMemory(time.Now()) != 0 {
		t.Fatalf("expected no in-process cache")
	}
}

func TestMemoryCacheDoesNotStoreFailures(t *testing.T) {
	up := testutil.NewUpstream(t)
	up.Status("/json/dir/", http.StatusBadGateway)

	c, err := New(up.URL(), Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), CategoriesPath); err == nil {
			t.Fatalf("expected fetch failure")
		}
	}
	if hits := up.Hits("/json/dir/"); hits != 2 {
		t.Fatalf("expected failures to be retried upstream, got %d hits", hits)
	}
}

func TestMemoryCacheExpiryAndEviction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryCache(2)

	_ = m.PutResponse(ctx, "a", []byte("A"), time.Minute, now)
	_ = m.PutResponse(ctx, "b", []byte("B"), time.Hour, now)
	_ = m.PutResponse(ctx, "c", []byte("C"), time.Hour, now)

	if _, ok, _ := m.GetResponse(ctx, "a", now); ok {
		t.Fatalf("expected the entry closest to expiry to be evicted")
	}
	if body, ok, _ := m.GetResponse(ctx, "c", now); !ok || string(body) != "C" {
		t.Fatalf("expected c cached, got %q %v", body, ok)
	}
	if n := m.Sweep(now.Add(2 * time.Hour)); n != 2 || m.Len() != 0 {
		t.Fatalf("expected both entries swept, removed %d, left %d", n, m.Len())
	}
	if err := m.PutResponse(ctx, "d", []byte("D"), 0, now); err != nil || m.Len() != 0 {
		t.Fatalf("expected zero ttl to skip caching")
	}
}
