package classifier

import (
	"sync"

	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// TypeCache stores classification results keyed by lowercase token address.
type TypeCache interface {
	Get(key string) (token.Type, bool)
	Set(key string, t token.Type)
	Delete(key string)
	Clear()
}

// MemoryCache is a process-local TypeCache.
type MemoryCache struct {
	mu    sync.RWMutex
	types map[string]token.Type
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{types: make(map[string]token.Type)}
}

func (c *MemoryCache) Get(key string) (token.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[key]
	return t, ok
}

func (c *MemoryCache) Set(key string, t token.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[key] = t
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.types, key)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = make(map[string]token.Type)
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}
