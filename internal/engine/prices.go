package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"papertrader/internal/models"
)

// PriceCache keeps the latest price per symbol.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]models.Tick
}

// NewPriceCache creates an empty cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]models.Tick)}
}

// Set records price as the latest for symbol.
func (c *PriceCache) Set(symbol string, price decimal.Decimal, at time.Time) {
	c.mu.Lock()
	c.prices[symbol] = models.Tick{Symbol: symbol, Price: price, Timestamp: at}
	c.mu.Unlock()
}

// Get returns the latest price for symbol.
func (c *PriceCache) Get(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.prices[symbol]
	return t.Price, ok
}
