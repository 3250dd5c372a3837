package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRU_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	c := NewLRU[bool](4, time.Minute).WithClock(func() time.Time { return now })

	c.Set("2025", true)
	assert.True(t, c.Has("2025"))

	now = now.Add(2 * time.Minute)
	assert.False(t, c.Has("2025"))
	assert.Equal(t, 0, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestLRU_CleanExpiredAndPurge(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string](10, time.Second).WithClock(func() time.Time { return now })
	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(time.Minute)
	c.Set("z", "3")

	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
