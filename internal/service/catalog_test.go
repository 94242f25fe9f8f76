package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/domain/catalog"
	"github.com/medistore/medistore/internal/domain/storage"
)

func productPage(names ...string) catalog.Page[catalog.Product] {
	p := catalog.Page[catalog.Product]{Page: 1, PageSize: catalog.DefaultPageSize, Total: len(names), TotalPages: 1}
	for i, n := range names {
		p.Data = append(p.Data, catalog.Product{ID: string(rune('a' + i)), Name: n, Stock: 3, MinStock: 5})
	}
	return p
}

func newTestCatalog(h *harness) (*Catalog, *time.Time) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewCatalog(h.client, h.store, time.Minute, testLogger())
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCatalog_ReadThrough(t *testing.T) {
	h := newHarness(t)
	var query string
	h.srv.handle("GET /products", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		reply(w, http.StatusOK, success(productPage("Paracetamol 500mg")))
	})
	c, now := newTestCatalog(h)
	ctx := context.Background()

	first, err := c.Products(ctx, ProductQuery{Search: "para"})
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	if first.Hit || !first.Changed || len(first.Data.Data) != 1 {
		t.Errorf("first = %+v", first)
	}
	if query != "limit=20&page=1&search=para" {
		t.Errorf("query = %q", query)
	}
	if !first.Data.Data[0].LowStock() {
		t.Error("expected low stock product")
	}

	second, err := c.Products(ctx, ProductQuery{Search: "para"})
	if err != nil {
		t.Fatalf("cached Products() error: %v", err)
	}
	if !second.Hit || second.Fingerprint != first.Fingerprint {
		t.Errorf("second = %+v, want cache hit", second)
	}
	if got := h.srv.count("GET /products"); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}

	*now = now.Add(2 * time.Minute)
	third, err := c.Products(ctx, ProductQuery{Search: "para"})
	if err != nil {
		t.Fatalf("expired Products() error: %v", err)
	}
	if third.Hit || third.Changed {
		t.Errorf("third = %+v, want refetch with unchanged data", third)
	}
	if got := h.srv.count("GET /products"); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestCatalog_RefreshDetectsChange(t *testing.T) {
	h := newHarness(t)
	var version atomic.Int32
	h.srv.handle("GET /products", func(w http.ResponseWriter, r *http.Request) {
		if version.Load() == 0 {
			reply(w, http.StatusOK, success(productPage("Paracetamol")))
			return
		}
		reply(w, http.StatusOK, success(productPage("Paracetamol", "Cetirizine")))
	})
	c, _ := newTestCatalog(h)
	ctx := context.Background()

	first, _ := c.Products(ctx, ProductQuery{})
	version.Store(1)
	second, err := c.Products(ctx, ProductQuery{Refresh: true})
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	if !second.Changed || second.Fingerprint == first.Fingerprint {
		t.Errorf("second = %+v, want changed fingerprint", second)
	}
}

func TestCatalog_OfflineServesStale(t *testing.T) {
	h := newHarness(t)
	h.srv.handle("GET /store/profile", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, success(catalog.StoreProfile{ID: "s1", Name: "Rao Medicals"}))
	})
	c, _ := newTestCatalog(h)
	ctx := context.Background()

	if _, err := c.StoreProfile(ctx, false); err != nil {
		t.Fatalf("StoreProfile() error: %v", err)
	}
	h.srv.Close()

	got, err := c.StoreProfile(ctx, true)
	if err != nil {
		t.Fatalf("offline StoreProfile() error: %v", err)
	}
	if !got.Stale || got.Data.Name != "Rao Medicals" {
		t.Errorf("offline result = %+v, want stale cached profile", got)
	}
}

func TestCatalog_OfflineWithoutCacheFails(t *testing.T) {
	h := newHarness(t)
	c, _ := newTestCatalog(h)
	h.srv.Close()

	_, err := c.Orders(context.Background(), OrderQuery{Status: catalog.OrderPending})
	if !errors.Is(err, httpapi.ErrNetwork) {
		t.Errorf("Orders() error = %v, want network error", err)
	}
}

func TestCatalog_ServerErrorNotMasked(t *testing.T) {
	h := newHarness(t)
	var fail atomic.Bool
	h.srv.handle("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			reply(w, http.StatusInternalServerError, failure("db down"))
			return
		}
		reply(w, http.StatusOK, success(catalog.Page[catalog.Order]{Page: 1}))
	})
	c, _ := newTestCatalog(h)
	ctx := context.Background()

	if _, err := c.Orders(ctx, OrderQuery{}); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	if _, err := c.Orders(ctx, OrderQuery{Refresh: true}); !errors.Is(err, httpapi.ErrServer) {
		t.Errorf("Orders() error = %v, want server error", err)
	}
}

func TestCatalog_Invalidate(t *testing.T) {
	h := newHarness(t)
	h.srv.handle("GET /products", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, success(productPage("Paracetamol")))
	})
	h.seedSession(t, "tok123")
	c, _ := newTestCatalog(h)

	_, _ = c.Products(context.Background(), ProductQuery{})
	if err := c.Invalidate(); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	_, _ = c.Products(context.Background(), ProductQuery{})

	if got := h.srv.count("GET /products"); got != 2 {
		t.Errorf("server hits = %d, want 2 after invalidation", got)
	}
	if !h.api.IsAuthenticated() {
		t.Error("Invalidate() removed credentials")
	}
}

// ---------------------------------------------------------------------------
// Eviction when the session ends
// ---------------------------------------------------------------------------

func TestCatalog_EvictedWhenSessionExpires(t *testing.T) {
	h := newHarness(t)
	h.srv.handle("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok123" {
			reply(w, http.StatusUnauthorized, failure("Unauthorized"))
			return
		}
		reply(w, http.StatusOK, success(catalog.Page[catalog.Order]{Page: 1, Total: 1, TotalPages: 1}))
	})
	h.srv.handle("GET /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnauthorized, failure("Token revoked"))
	})
	h.seedSession(t, "tok123")
	h.sessions.Initialize()
	c, _ := newTestCatalog(h)
	c.EvictOnSessionEnd(h.sessions)
	ctx := context.Background()

	if _, err := c.Orders(ctx, OrderQuery{}); err != nil {
		t.Fatalf("Orders() error: %v", err)
	}

	// No refresh token is stored, so this 401 ends the session.
	if _, err := h.api.GetProfile(ctx); !errors.Is(err, httpapi.ErrUnauthorized) {
		t.Fatalf("GetProfile() error = %v, want unauthorized", err)
	}
	if h.sessions.Snapshot().IsAuthenticated {
		t.Fatal("session still authenticated after unrecoverable 401")
	}

	got, err := c.Orders(ctx, OrderQuery{})
	if err == nil {
		t.Fatalf("Orders() after expiry = %+v, want error", got)
	}
	if !errors.Is(err, httpapi.ErrUnauthorized) {
		t.Errorf("Orders() error = %v, want unauthorized", err)
	}
	if n := h.srv.count("GET /orders"); n != 2 {
		t.Errorf("orders hits = %d, want 2 (no cache hit after expiry)", n)
	}
}

func TestCatalog_EvictedOnLogoutAndSignIn(t *testing.T) {
	h := newHarness(t)
	h.srv.handle("GET /store/profile", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, success(catalog.StoreProfile{Name: "Rao Medicals"}))
	})
	h.srv.handle("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, success(nil))
	})
	h.srv.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, success(map[string]any{"user": testUser, "token": "tok456"}))
	})
	h.seedSession(t, "tok123")
	h.sessions.Initialize()
	c, _ := newTestCatalog(h)
	stop := c.EvictOnSessionEnd(h.sessions)
	ctx := context.Background()

	_, _ = c.StoreProfile(ctx, false)
	h.sessions.Logout(ctx)
	if ok, _ := h.store.Contains(storage.KeyStoreProfile); ok {
		t.Error("store profile cache kept after Logout()")
	}

	_, _ = c.StoreProfile(ctx, false)
	if !h.sessions.Login(ctx, validCreds) {
		t.Fatalf("Login() = false, lastError = %q", h.sessions.Snapshot().LastError)
	}
	if ok, _ := h.store.Contains(storage.KeyStoreProfile); ok {
		t.Error("store profile cache kept across sign-in")
	}

	stop()
	_, _ = c.StoreProfile(ctx, false)
	h.sessions.Logout(ctx)
	if ok, _ := h.store.Contains(storage.KeyStoreProfile); !ok {
		t.Error("cache cleared after stop()")
	}
}
