package profile

import (
	"context"
	"sync"
	"time"

	"scholarshelf/pkg/domain"
)

type cacheEntry struct {
	party     domain.Party
	fetchedAt time.Time
}

// Cache is a lazily-filled last-known-profile cache. Entries live until
// Invalidate is called for the user (wired to profile-update events) or the
// optional TTL elapses. It is an explicit object handed to its consumers,
// never a package singleton.
type Cache struct {
	svc Service
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps a profile service. ttl <= 0 disables expiry.
func NewCache(svc Service, ttl time.Duration) *Cache {
	return &Cache{
		svc:     svc,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached profile or fetches it on first use.
func (c *Cache) Get(ctx context.Context, userID string) (domain.Party, error) {
	c.mu.Lock()
	entry, ok := c.entries[userID]
	c.mu.Unlock()
	if ok && (c.ttl <= 0 || time.Since(entry.fetchedAt) < c.ttl) {
		return entry.party, nil
	}
	party, err := c.svc.Profile(ctx, userID)
	if err != nil {
		// Serve a stale entry over failing outright.
		if ok {
			return entry.party, nil
		}
		return domain.Party{}, err
	}
	c.mu.Lock()
	c.entries[userID] = cacheEntry{party: party, fetchedAt: time.Now()}
	c.mu.Unlock()
	return party, nil
}

// Invalidate drops one user's cached profile; the next Get refetches.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached profile.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
