package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "narrative")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "narrative", v)
	assert.Equal(t, 1, c.Size())

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(2), stats["misses"])
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Stats()["expired_items"])

	c.evictExpired()
	assert.Equal(t, 0, c.Size())
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", ""), Key("a", "b"))
	assert.Len(t, Key("prompt"), 32)
}

func TestClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Close()
	c.Close()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Clear()
	assert.Equal(t, 0, c.Size())
}
