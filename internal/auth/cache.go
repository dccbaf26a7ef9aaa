package auth

import (
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

type cacheEntry struct {
	profile    models.Profile
	insertedAt time.Time
}

// ProfileCache is a TTL-bounded in-memory cache of resolved principal
// profiles keyed by user id. The read path treats an entry older than the ttl
// as absent even when the sweep has not removed it yet; the periodic sweep is
// an optimization, not the correctness mechanism.
type ProfileCache struct {
	ttl   time.Duration
	sweep time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry

	stop chan struct{}
	once sync.Once
}

// NewProfileCache constructs a cache whose entries expire after ttl and are
// physically removed by a background sweep every sweepEvery.
func NewProfileCache(ttl, sweepEvery time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	return &ProfileCache{
		ttl:     ttl,
		sweep:   sweepEvery,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
}

// Get returns the cached profile for the user id if present and younger than
// the ttl.
func (c *ProfileCache) Get(userID string) (models.Profile, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || now.Sub(entry.insertedAt) >= c.ttl {
		return models.Profile{}, false
	}
	return entry.profile, true
}

// Set stores the profile with the current timestamp, replacing any existing entry.
func (c *ProfileCache) Set(userID string, profile models.Profile) {
	if userID == "" {
		return
	}
	entry := cacheEntry{profile: profile, insertedAt: c.now()}

	c.mu.Lock()
	c.entries[userID] = entry
	c.mu.Unlock()
}

// Delete evicts the entry for the user id. Called synchronously on logout so a
// revoked session is not served stale within the ttl window.
func (c *ProfileCache) Delete(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Start launches the background sweep goroutine.
func (c *ProfileCache) Start() {
	go func() {
		ticker := time.NewTicker(c.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.removeExpired()
			}
		}
	}()
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (c *ProfileCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *ProfileCache) removeExpired() {
	now := c.now()

	c.mu.Lock()
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of physically stored entries, expired or not.
// Useful for tests.
func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WithNowFunc allows tests to override the time source.
func (c *ProfileCache) WithNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
