package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetExpire(t *testing.T) {
	c := New(Options{TTL: 20 * time.Millisecond})
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.DeleteExpired()
	assert.Equal(t, 0, c.Count())
}

func TestMaxItemsEvictsSoonestExpiry(t *testing.T) {
	c := New(Options{MaxItems: 2})
	defer c.Close()

	var evicted []string
	c.SetOnEvicted(func(k string, _ any) { evicted = append(evicted, k) })

	c.SetWithExpiration("short", 1, time.Minute)
	c.SetWithExpiration("long", 2, time.Hour)
	c.Set("third", 3)

	assert.Equal(t, []string{"short"}, evicted)
	assert.Equal(t, 2, c.Count())

	// overwriting an existing key never evicts
	c.Set("third", 4)
	assert.Len(t, evicted, 1)
}

func TestDeleteAndFlush(t *testing.T) {
	c := New(Options{CleanupInterval: time.Millisecond})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Flush()
	assert.Equal(t, 0, c.Count())
}
