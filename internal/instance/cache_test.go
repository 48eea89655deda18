package instance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

func TestConnCacheTTL(t *testing.T) {
	t0 := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		readAt    time.Duration
		expCached bool
	}{
		"A read right after caching should hit the cache":     {readAt: 0, expCached: true},
		"A read just inside the window should hit the cache":  {readAt: 299 * time.Second, expCached: true},
		"A read at the window boundary should miss the cache": {readAt: 300 * time.Second, expCached: false},
		"A read after the window should miss the cache":       {readAt: 301 * time.Second, expCached: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			now := t0
			cache := newConnCache(log.Noop)
			cache.timeNow = func() time.Time { return now }

			builds := 0
			build := func() model.ConnectionInfo {
				builds++
				return model.ConnectionInfo{Host: "localhost", Port: 5432 + builds}
			}

			first := cache.Get(build)

			now = t0.Add(test.readAt)
			second := cache.Get(build)

			if test.expCached {
				assert.Equal(t, 1, builds)
				assert.Equal(t, first, second)
			} else {
				assert.Equal(t, 2, builds)
				assert.NotEqual(t, first, second)
			}
		})
	}
}

func TestConnCacheInvalidate(t *testing.T) {
	cache := newConnCache(log.Noop)

	builds := 0
	build := func() model.ConnectionInfo {
		builds++
		return model.ConnectionInfo{Port: builds}
	}

	assert.False(t, cache.Valid())

	cache.Get(build)
	assert.True(t, cache.Valid())

	cache.Invalidate()
	assert.False(t, cache.Valid())

	cache.Get(build)
	assert.Equal(t, 2, builds)
}

func TestConnCacheValidDoesNotCreateEntries(t *testing.T) {
	cache := newConnCache(log.Noop)

	assert.False(t, cache.Valid())
	assert.False(t, cache.Valid())
	assert.Nil(t, cache.entry)
}
