// internal/orgcache/orgcache.go
package orgcache

import (
	"context"
	"sync"
	"time"

	"bitbucket-webhook-ingest/internal/model"
)

// Lookup is the uncached organization source, normally the database store.
type Lookup interface {
	GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error)
}

type entry struct {
	org     model.Organization
	expires time.Time
}

// Cache is a read-through TTL cache over organization lookups. Organizations
// are immutable from this service's point of view, so a short TTL only bounds
// staleness against out-of-band deletes. "Not found" results are not cached.
type Cache struct {
	lookup Lookup
	ttl    time.Duration

	mu      sync.Mutex
	entries map[int64]entry
}

func New(lookup Lookup, ttl time.Duration) *Cache {
	return &Cache{
		lookup:  lookup,
		ttl:     ttl,
		entries: make(map[int64]entry),
	}
}

func (c *Cache) GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if ok && time.Now().Before(e.expires) {
		return e.org, nil
	}

	org, err := c.lookup.GetOrganizationByID(ctx, id)
	if err != nil {
		return model.Organization{}, err
	}

	c.mu.Lock()
	c.entries[id] = entry{org: org, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return org, nil
}
