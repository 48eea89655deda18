package instance

import (
	"sync"
	"time"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// connCacheTTL is how long a cached connection info snapshot stays valid.
const connCacheTTL = 5 * time.Minute

type connCacheEntry struct {
	info      model.ConnectionInfo
	createdAt time.Time
}

// connCache caches the derived connection information so repeated reads don't
// rebuild it. Entries older than the TTL are silently replaced.
type connCache struct {
	mu      sync.Mutex
	entry   *connCacheEntry
	ttl     time.Duration
	timeNow func() time.Time
	logger  log.Logger
}

func newConnCache(logger log.Logger) *connCache {
	return &connCache{
		ttl:     connCacheTTL,
		timeNow: time.Now,
		logger:  logger,
	}
}

// Get returns the cached snapshot if fresh, otherwise builds a new one with
// fresh, stores it and returns it.
func (c *connCache) Get(fresh func() model.ConnectionInfo) model.ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.timeNow()
	if c.entry != nil && now.Sub(c.entry.createdAt) < c.ttl {
		c.logger.Debugf("using cached connection info")
		return c.entry.info
	}

	info := fresh()
	c.entry = &connCacheEntry{info: info, createdAt: now}
	c.logger.Debugf("cached new connection info")

	return info
}

// Invalidate clears the cache unconditionally.
func (c *connCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
}

// Valid returns whether a non-stale entry exists, without creating one.
func (c *connCache) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entry != nil && c.timeNow().Sub(c.entry.createdAt) < c.ttl
}
