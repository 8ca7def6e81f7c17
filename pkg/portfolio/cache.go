package portfolio

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by a Cache when no snapshot is stored under a key.
var ErrCacheMiss = errors.New("portfolio cache miss")

// Cache stores portfolio snapshots.
type Cache interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Set(ctx context.Context, key string, snap *Snapshot) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	snap    Snapshot
	expires time.Time
}

// MemoryCache keeps snapshots in process memory until their TTL elapses.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a memory cache. A ttl <= 0 keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	snap := e.snap
	snap.Holdings = append([]Holding(nil), e.snap.Holdings...)
	return &snap, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, snap *Snapshot) error {
	e := memoryEntry{snap: *snap}
	e.snap.Holdings = append([]Holding(nil), snap.Holdings...)
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
