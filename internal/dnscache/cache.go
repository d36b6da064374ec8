package dnscache

import (
	"strings"
	"sync"
	"time"

	"github.com/linkrail/linkrail/internal/clock"
	"go.uber.org/zap"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = 60 * time.Second
)

// Config tunes cache freshness and the background sweep.
type Config struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

type entryKey struct {
	domain     string
	recordType string
}

type entry struct {
	records    []string
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a short-TTL in-memory store of DNS answers keyed by
// (domain, record type). Entries expire against the injected clock; a
// background sweep reclaims elapsed entries so memory stays bounded
// without an eviction policy. The cache is process-local: DNS remains
// the authority on every miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[entryKey]entry

	cfg   Config
	clock clock.Clock
	log   *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// New constructs the cache and starts its sweep goroutine. Callers own the
// lifecycle and must call Stop.
func New(cfg Config, clk clock.Clock, log *zap.Logger) *Cache {
	c := &Cache{
		entries: make(map[entryKey]entry),
		cfg:     cfg.withDefaults(),
		clock:   clk,
		log:     log.Named("dnscache"),
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Stop terminates the sweep goroutine. Idempotent.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// Get returns the cached records for (domain, recordType) when the entry is
// still fresh. Expired entries are treated as absent.
func (c *Cache) Get(domain, recordType string) ([]string, bool) {
	key := makeKey(domain, recordType)
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now.Sub(e.insertedAt) >= e.ttl {
		return nil, false
	}

	records := make([]string, len(e.records))
	copy(records, e.records)
	return records, true
}

// Put stores records for (domain, recordType), overwriting any prior entry.
// A non-positive ttl falls back to the configured default.
func (c *Cache) Put(domain, recordType string, records []string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	stored := make([]string, len(records))
	copy(stored, records)

	key := makeKey(domain, recordType)
	c.mu.Lock()
	c.entries[key] = entry{
		records:    stored,
		insertedAt: c.clock.Now(),
		ttl:        ttl,
	}
	c.mu.Unlock()
}

// Invalidate removes the entry for (domain, recordType), or every record
// type for the domain when recordType is empty. Returns the number of
// entries removed.
func (c *Cache) Invalidate(domain, recordType string) int {
	domain = normalize(domain)
	removed := 0

	c.mu.Lock()
	if recordType != "" {
		key := entryKey{domain: domain, recordType: normalize(recordType)}
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			removed++
		}
	} else {
		for key := range c.entries {
			if key.domain == domain {
				delete(c.entries, key)
				removed++
			}
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.log.Debug("cache invalidated",
			zap.String("domain", domain),
			zap.String("record_type", recordType),
			zap.Int("removed", removed),
		)
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep deletes every elapsed entry. Called periodically by the sweep
// goroutine; exported so a forced sweep can be tested deterministically.
func (c *Cache) Sweep() int {
	now := c.clock.Now()
	removed := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) >= e.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.log.Debug("cache sweep", zap.Int("removed", removed))
	}
	return removed
}

func makeKey(domain, recordType string) entryKey {
	return entryKey{
		domain:     normalize(domain),
		recordType: normalize(recordType),
	}
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(value), "."))
}
