package data

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"supply-forecast/internal/model"
	"supply-forecast/internal/process"
)

// CacheEntry is one cached driver path.
type CacheEntry struct {
	Drivers   model.DriverVector
	ExpiresAt time.Time
}

// DriverCache keeps generated driver paths in memory so repeated API calls
// with the same generator settings, horizon and seed skip regeneration.
// Paths are deterministic in those inputs, so the TTL only bounds memory.
// A nil *DriverCache is valid and caches nothing.
type DriverCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewDriverCache creates a cache. ttl <= 0 disables caching and returns nil.
func NewDriverCache(ttl time.Duration) *DriverCache {
	if ttl <= 0 {
		return nil
	}
	return &DriverCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a cached path if present and not expired.
func (c *DriverCache) Get(key string) (model.DriverVector, bool) {
	if c == nil {
		return model.DriverVector{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.ExpiresAt) {
		return model.DriverVector{}, false
	}
	return entry.Drivers, true
}

// Set stores a path. Callers must not mutate v afterwards.
func (c *DriverCache) Set(key string, v model.DriverVector) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{Drivers: v, ExpiresAt: c.now().Add(c.ttl)}
}

// Len counts live and expired entries not yet pruned.
func (c *DriverCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Prune drops expired entries.
func (c *DriverCache) Prune() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
		}
	}
}

// Generate returns the cached path for (gen, horizon, seed) or draws and caches it.
func (c *DriverCache) Generate(gen *process.Generator, horizon int, seed uint64) (model.DriverVector, error) {
	key, err := CacheKey(gen.Spec(), horizon, seed)
	if err != nil {
		return model.DriverVector{}, err
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := gen.Generate(horizon, seed)
	if err != nil {
		return model.DriverVector{}, err
	}
	c.Set(key, v)
	return v, nil
}

// CacheKey hashes the generator settings, horizon and seed.
func CacheKey(spec process.DriversSpec, horizon int, seed uint64) (string, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encode driver spec: %w", err)
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", raw, horizon, seed)))
	return hex.EncodeToString(hash[:]), nil
}
