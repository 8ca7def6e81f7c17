package session

import (
	"strings"
	"sync"

	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
)

// PermitCache stores permits keyed by lowercase issuer address.
type PermitCache interface {
	Get(issuer string) (*cofhe.Permit, bool)
	Set(issuer string, p *cofhe.Permit)
	Delete(issuer string)
	// FindByHash returns the cached permit with the given hash, if any.
	FindByHash(hash string) (*cofhe.Permit, bool)
	Clear()
	Len() int
}

// MemoryPermitCache is a process-local PermitCache.
type MemoryPermitCache struct {
	mu      sync.RWMutex
	permits map[string]*cofhe.Permit
}

// NewMemoryPermitCache creates an empty permit cache.
func NewMemoryPermitCache() *MemoryPermitCache {
	return &MemoryPermitCache{permits: make(map[string]*cofhe.Permit)}
}

func (c *MemoryPermitCache) Get(issuer string) (*cofhe.Permit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.permits[issuer]
	return p, ok
}

func (c *MemoryPermitCache) Set(issuer string, p *cofhe.Permit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permits[issuer] = p
}

func (c *MemoryPermitCache) Delete(issuer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.permits, issuer)
}

func (c *MemoryPermitCache) FindByHash(hash string) (*cofhe.Permit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.permits {
		if strings.EqualFold(p.Hash, hash) {
			return p, true
		}
	}
	return nil, false
}

func (c *MemoryPermitCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permits = make(map[string]*cofhe.Permit)
}

func (c *MemoryPermitCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.permits)
}
