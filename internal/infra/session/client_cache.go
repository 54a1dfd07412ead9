package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sms-relay/internal/domain"
	"sms-relay/internal/domain/ports/adapter"
	"sms-relay/internal/infra/metrics"
)

type entry struct {
	value     any
	createdAt time.Time
}

// ClientCache holds one client handle and rebuilds it once it is ttl old.
type ClientCache struct {
	provider adapter.ClientProvider
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	entry *entry
}

func NewClientCache(p adapter.ClientProvider, ttl time.Duration) *ClientCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ClientCache{provider: p, ttl: ttl, now: time.Now}
}

// Get returns the cached handle or builds a new one. Build failures are
// wrapped with domain.ErrConfiguration and leave the cache empty.
func (c *ClientCache) Get(ctx context.Context) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.provider.Name()
	if c.entry != nil && c.now().Sub(c.entry.createdAt) < c.ttl {
		metrics.IncClientCache(name, "hit")
		return c.entry.value, nil
	}

	v, err := c.provider.NewClient(ctx)
	if err != nil {
		c.entry = nil
		metrics.IncClientCache(name, "error")
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, name, err)
	}
	metrics.IncClientCache(name, "miss")
	c.entry = &entry{value: v, createdAt: c.now()}
	return v, nil
}

// Invalidate drops the cached handle.
func (c *ClientCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

func (c *ClientCache) Provider() string { return c.provider.Name() }
