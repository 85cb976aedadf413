package risk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_ScoreCached(t *testing.T) {
	c := NewCache()
	f := cleanFactors()
	f.LiquidityLocked = false

	first := c.ScoreCached(f)
	assert.Equal(t, 20.0, first.Value)
	assert.Equal(t, 1, c.Len())

	// Second call serves the cached entry and matches a fresh score.
	assert.Equal(t, first, c.ScoreCached(f))
	assert.Equal(t, Score(f), c.ScoreCached(f))
	assert.Equal(t, 1, c.Len())

	// A changed snapshot is a different key, never a stale hit.
	f.LiquidityLocked = true
	assert.Equal(t, 0.0, c.ScoreCached(f).Value)
	assert.Equal(t, 2, c.Len())
}

func TestCache_NilCacheDegradesToScore(t *testing.T) {
	var c *Cache
	f := cleanFactors()
	assert.Equal(t, Score(f), c.ScoreCached(f))
}

func TestCache_Purge(t *testing.T) {
	c := NewCache()
	c.ScoreCached(cleanFactors())
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f := cleanFactors()
			f.HolderCount = n % 4 * 50
			_ = c.ScoreCached(f)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 4)
}
