package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := New(time.Minute)
	c.Set("companies", []string{"a", "b"})

	v, ok := c.Get("companies")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("key", 1)
	_, ok := c.Get("key")
	require.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = c.Get("key")
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestInvalidate(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Invalidate("a", "b")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestDisabledTTL(t *testing.T) {
	c := New(0)
	c.Set("a", 1)

	_, ok := c.Get("a")
	assert.False(t, ok, "non-positive TTL disables caching")
}

func TestNilReceiver(t *testing.T) {
	var c *TTLCache
	assert.NotPanics(t, func() {
		c.Set("a", 1)
		_, _ = c.Get("a")
		c.Invalidate("a")
		c.Clear()
	})
}
