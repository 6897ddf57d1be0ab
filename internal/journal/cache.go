package journal

import (
	"sync"
	"time"

	"trade-journal-go/internal/models"
)

// DefaultCacheTTL is how long a wallet's trade list is served without re-fetching.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	trades    []models.Trade
	writtenAt time.Time
}

// WalletTradeCache holds the deduplicated trade list of each wallet with the time it was
// written. Expired entries are treated as absent on read and are never swept in the background.
//
// Each wallet key has its own lock, so a reader never observes a half-replaced list while
// different wallets proceed independently.
type WalletTradeCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex // guards entries and locks maps, not their values
	entries map[string]*cacheEntry
	locks   map[string]*sync.RWMutex
}

// CacheOption configures a WalletTradeCache.
type CacheOption func(*WalletTradeCache)

// WithTTL overrides DefaultCacheTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *WalletTradeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *WalletTradeCache) { c.now = now }
}

// NewWalletTradeCache creates an empty cache.
func NewWalletTradeCache(opts ...CacheOption) *WalletTradeCache {
	c := &WalletTradeCache{
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
		locks:   make(map[string]*sync.RWMutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default validity window.
func (c *WalletTradeCache) TTL() time.Duration { return c.ttl }

func (c *WalletTradeCache) keyLock(walletID string) *sync.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[walletID]
	if !ok {
		l = &sync.RWMutex{}
		c.locks[walletID] = l
	}
	return l
}

func (c *WalletTradeCache) entry(walletID string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[walletID]
}

// Get returns a copy of the wallet's trades if the entry exists and is within the default TTL.
func (c *WalletTradeCache) Get(walletID string) ([]models.Trade, bool) {
	l := c.keyLock(walletID)
	l.RLock()
	defer l.RUnlock()

	e := c.entry(walletID)
	if e == nil || !c.fresh(e, c.ttl) {
		return nil, false
	}
	return copyTrades(e.trades), true
}

// Set replaces the wallet's trades and resets its write time.
func (c *WalletTradeCache) Set(walletID string, trades []models.Trade) {
	l := c.keyLock(walletID)
	l.Lock()
	defer l.Unlock()

	e := &cacheEntry{trades: copyTrades(trades), writtenAt: c.now()}
	c.mu.Lock()
	c.entries[walletID] = e
	c.mu.Unlock()
}

// Invalidate drops the wallet's entry.
func (c *WalletTradeCache) Invalidate(walletID string) {
	l := c.keyLock(walletID)
	l.Lock()
	defer l.Unlock()

	c.mu.Lock()
	delete(c.entries, walletID)
	c.mu.Unlock()
}

// IsValid reports whether the wallet has an entry no older than maxAge.
// A non-positive maxAge uses the cache TTL.
func (c *WalletTradeCache) IsValid(walletID string, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = c.ttl
	}
	l := c.keyLock(walletID)
	l.RLock()
	defer l.RUnlock()

	e := c.entry(walletID)
	return e != nil && c.fresh(e, maxAge)
}

// WrittenAt returns when the wallet's entry was last written, stale or not.
func (c *WalletTradeCache) WrittenAt(walletID string) (time.Time, bool) {
	e := c.entry(walletID)
	if e == nil {
		return time.Time{}, false
	}
	return e.writtenAt, true
}

func (c *WalletTradeCache) fresh(e *cacheEntry, maxAge time.Duration) bool {
	return c.now().Sub(e.writtenAt) <= maxAge
}

func copyTrades(trades []models.Trade) []models.Trade {
	if trades == nil {
		return nil
	}
	out := make([]models.Trade, len(trades))
	copy(out, trades)
	return out
}
