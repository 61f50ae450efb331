package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"grocery-autocart/pkg/models"
)

const cacheKeyPrefix = "session:"

type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is an in-process SessionCache with per-entry TTL. Entries are
// stored as JSON so a hit never aliases a caller's struct. A janitor
// goroutine sweeps expired entries; Get also checks expiry lazily so a slow
// sweep can never serve stale data.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("%s%s", cacheKeyPrefix, id)
}

// Set stores the session under session:{id} with the configured TTL.
func (c *MemoryCache) Set(ctx context.Context, session *models.SessionData) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	c.mu.Lock()
	c.entries[cacheKey(session.ID)] = cacheEntry{
		payload:   payload,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Get returns the cached session or ErrNotFound.
func (c *MemoryCache) Get(ctx context.Context, id string) (*models.SessionData, error) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(id)]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	var session models.SessionData
	if err := json.Unmarshal(entry.payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode cached session %s: %w", id, err)
	}
	return &session, nil
}

// Delete evicts the entry. Unknown ids are a no-op.
func (c *MemoryCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.entries, cacheKey(id))
	c.mu.Unlock()
	return nil
}

// Ping always succeeds for the in-process cache.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Stop terminates the janitor goroutine.
func (c *MemoryCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}
