package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/domain/catalog"
	"github.com/medistore/medistore/internal/domain/storage"
)

// Catalog endpoint paths.
const (
	PathProducts     = "/products"
	PathOrders       = "/orders"
	PathStoreProfile = "/store/profile"
)

// DefaultCacheTTL is how long a cached catalog response is served without
// asking the server.
const DefaultCacheTTL = 5 * time.Minute

// Cached is a catalog response together with where it came from.
type Cached[T any] struct {
	Data      T         `json:"data"`
	FetchedAt time.Time `json:"fetchedAt"`
	// Fingerprint is the xxhash of the encoded data; equal fingerprints mean
	// equal data.
	Fingerprint uint64 `json:"fingerprint"`

	// Changed is true when this fetch returned different data than the
	// cache held. Stale is true when the server could not be reached and
	// the cached copy was served instead.
	Changed bool `json:"-"`
	Stale   bool `json:"-"`
	Hit     bool `json:"-"`
}

// ProductQuery selects a page of products.
type ProductQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
	// Refresh bypasses a fresh cache entry.
	Refresh bool
}

// OrderQuery selects a page of orders.
type OrderQuery struct {
	Page    int
	Limit   int
	Status  catalog.OrderStatus
	Refresh bool
}

// Catalog reads products, orders and the store profile through a local
// cache. A fresh entry is served without a request; an expired one is
// refetched; when the server is unreachable the last copy is served marked
// Stale.
type Catalog struct {
	client *httpapi.Client
	store  storage.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalog creates the catalog service. ttl <= 0 selects DefaultCacheTTL.
func NewCatalog(client *httpapi.Client, store storage.Store, ttl time.Duration, logger *slog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Catalog{
		client: client,
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Products returns a page of products.
func (c *Catalog) Products(ctx context.Context, q ProductQuery) (*Cached[catalog.Page[catalog.Product]], error) {
	v := pageQuery(q.Page, q.Limit)
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return readThrough[catalog.Page[catalog.Product]](ctx, c, storage.KeyProductsCache, PathProducts, v, q.Refresh)
}

// Orders returns a page of orders.
func (c *Catalog) Orders(ctx context.Context, q OrderQuery) (*Cached[catalog.Page[catalog.Order]], error) {
	v := pageQuery(q.Page, q.Limit)
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	return readThrough[catalog.Page[catalog.Order]](ctx, c, storage.KeyOrdersCache, PathOrders, v, q.Refresh)
}

// StoreProfile returns the pharmacy's profile.
func (c *Catalog) StoreProfile(ctx context.Context, refresh bool) (*Cached[catalog.StoreProfile], error) {
	return readThrough[catalog.StoreProfile](ctx, c, storage.KeyStoreProfile, PathStoreProfile, nil, refresh)
}

// Invalidate drops every catalog cache entry.
func (c *Catalog) Invalidate() error {
	keys, err := c.store.Keys()
	if err != nil {
		return err
	}
	var drop []string
	for _, k := range keys {
		if hasCachePrefix(k) {
			drop = append(drop, k)
		}
	}
	return storage.RemoveAll(c.store, drop...)
}

// EvictOnSessionEnd drops the cache whenever sessions ends or replaces the
// signed-in account, so one account's pages are never served to another.
// The returned function stops it.
func (c *Catalog) EvictOnSessionEnd(sessions *SessionStore) (stop func()) {
	return sessions.OnSessionEnd(func(context.Context) {
		if err := c.Invalidate(); err != nil {
			c.logger.Warn("failed to clear catalog cache", "error", err)
			return
		}
		c.logger.Debug("catalog cache cleared")
	})
}

func hasCachePrefix(k string) bool {
	for _, p := range []string{storage.KeyProductsCache, storage.KeyOrdersCache, storage.KeyStoreProfile} {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}

// readThrough serves key from the cache or fetches path and caches it.
func readThrough[T any](ctx context.Context, c *Catalog, baseKey, path string, q url.Values, refresh bool) (*Cached[T], error) {
	key := baseKey
	if len(q) > 0 {
		key += "?" + q.Encode()
	}

	cached, hasCache := storage.GetObject[Cached[T]](c.store, key)
	if hasCache && !refresh && c.now().Sub(cached.FetchedAt) < c.ttl {
		cached.Hit = true
		return &cached, nil
	}

	data, err := httpapi.Data[T](ctx, c.client, httpapi.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  q,
	})
	if err != nil {
		if hasCache && httpapi.KindOf(err) == httpapi.KindNetwork {
			c.logger.Info("serving cached catalog data", "key", key, "fetched_at", cached.FetchedAt, "error", err)
			cached.Stale = true
			cached.Hit = true
			return &cached, nil
		}
		return nil, err
	}

	fp, err := fingerprint(data)
	if err != nil {
		return nil, err
	}
	fresh := Cached[T]{
		Data:        *data,
		FetchedAt:   c.now(),
		Fingerprint: fp,
		Changed:     !hasCache || cached.Fingerprint != fp,
	}
	if err := storage.SetObject(c.store, key, fresh); err != nil {
		c.logger.Warn("failed to cache catalog data", "key", key, "error", err)
	}
	return &fresh, nil
}

func fingerprint(v any) (uint64, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("fingerprint: %w", err)
	}
	return xxhash.Sum64(b), nil
}

func pageQuery(page, limit int) url.Values {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = catalog.DefaultPageSize
	}
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}
