package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertAndRetrieve(t *testing.T) {
	c := NewCache(10)

	require.NoError(t, c.Insert("a", "value-a", 1))
	assert.Equal(t, ErrKeyExists, c.Insert("a", "value-a", 1))

	actual, ok := c.Retrieve("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", actual)

	_, ok = c.Retrieve("b")
	assert.False(t, ok)

	assert.Equal(t, 1, c.GetWeight())
	assert.Equal(t, 10, c.GetBudget())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)

	require.NoError(t, c.Insert("a", 1, 1))
	require.NoError(t, c.Insert("b", 2, 1))

	_, ok := c.Retrieve("a")
	require.True(t, ok)

	require.NoError(t, c.Insert("c", 3, 1))
	assert.Equal(t, 2, c.GetWeight())

	_, ok = c.Retrieve("b")
	assert.False(t, ok)
	_, ok = c.Retrieve("a")
	assert.True(t, ok)
	_, ok = c.Retrieve("c")
	assert.True(t, ok)
}

func TestCache_OversizedEntry(t *testing.T) {
	c := NewCache(2)

	require.NoError(t, c.Insert("a", 1, 1))
	require.NoError(t, c.Insert("big", 2, 5))

	assert.Equal(t, 0, c.GetWeight())
	_, ok := c.Retrieve("a")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Insert(fmt.Sprintf("%d", i), i, 1))
	}

	c.Clear()
	assert.Equal(t, 0, c.GetWeight())
	for i := 0; i < 5; i++ {
		_, ok := c.Retrieve(fmt.Sprintf("%d", i))
		assert.False(t, ok)
	}

	require.NoError(t, c.Insert("0", 0, 1))
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(64)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("%d-%d", worker, i)
				_ = c.Insert(key, i, 1)
				c.Retrieve(key)
			}
		}(worker)
	}
	wg.Wait()

	assert.True(t, c.GetWeight() <= c.GetBudget())
}
