// Package signing maintains the in-memory per-contest signing-key cache and
// the key lifecycle: lazy creation, scheduled expiry, deletion on contest
// removal, and replay-aware catch-up from the event log.
package signing

import (
	"sync"

	"github.com/google/uuid"

	"github.com/contest-hub/contest-hub/internal/domain/signing"
)

// Cache is the authoritative in-process projection of "does this contest
// currently have a usable key". An entry exists for every contest that is
// not archived or deleted; its key is nil between rotations. Each service
// instance owns an independent copy rebuilt from the event log at startup.
type Cache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*signing.KeyData
}

func NewCache() *Cache {
	return &Cache{entries: make(map[uuid.UUID]*signing.KeyData)}
}

// Get returns the cached key for a contest. The second return reports
// whether an entry exists at all; the key may be nil for an existing entry.
func (c *Cache) Get(contestID uuid.UUID) (*signing.KeyData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.entries[contestID]
	return key, ok
}

// Add stores key material for a contest, creating the entry if needed.
func (c *Cache) Add(contestID uuid.UUID, key *signing.KeyData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[contestID] = key
}

// EnsureEntry creates an empty entry when none exists yet.
func (c *Cache) EnsureEntry(contestID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[contestID]; !ok {
		c.entries[contestID] = nil
	}
}

// ClearKey drops the key material but keeps the entry.
func (c *Cache) ClearKey(contestID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[contestID]; ok {
		c.entries[contestID] = nil
	}
}

// Remove deletes the entry entirely (contest deleted or archived).
func (c *Cache) Remove(contestID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, contestID)
}

// Clear empties the cache; used before a full replay.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*signing.KeyData)
}

// ContestIDs returns the ids of all cached entries.
func (c *Cache) ContestIDs() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(c.entries))
	for id := range c.entries {
		out = append(out, id)
	}
	return out
}
