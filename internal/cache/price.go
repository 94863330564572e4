// internal/cache/price.go
package cache

import (
	"sync"
	"time"
)

// PriceCache — TTL-кэш одного скалярного значения (цена SOL/USD).
type PriceCache struct {
	mu        sync.RWMutex
	value     float64
	fetchedAt time.Time
	ttl       time.Duration
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{ttl: ttl}
}

func (c *PriceCache) Get() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) >= c.ttl {
		return 0, false
	}
	return c.value, true
}

func (c *PriceCache) Set(value float64) {
	c.mu.Lock()
	c.value = value
	c.fetchedAt = time.Now()
	c.mu.Unlock()
}
