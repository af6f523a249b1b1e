// Package cache holds rendered read responses between collection changes.
// It wraps patrickmn/go-cache; the server clears it on every record event.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache keys for read endpoints.
const (
	KeyCategories = "categories"
	keyRecords    = "records:"
	keyExport     = "export:"
)

// RecordsKey returns the key of the record listing for category.
func RecordsKey(category string) string {
	return keyRecords + category
}

// ExportKey returns the key of an export in format.
func ExportKey(format string) string {
	return keyExport + format
}

// Cache is a TTL cache.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries expire after ttl.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, cleanupInterval),
	}
}

// Get returns a cached value.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Remember returns the cached value for key, or computes and stores it.
// Errors are not cached.
func (c *Cache) Remember(key string, load func() (any, error)) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.store.Set(key, v, gocache.DefaultExpiration)
	return v, nil
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of entries, expired ones included until
// the next cleanup.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats describes the cache.
type Stats struct {
	ItemCount int `json:"item_count"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{ItemCount: c.store.ItemCount()}
}
