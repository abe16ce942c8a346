package fifo_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulscherrerinstitute/bsread-go/internal/fifo"
)

func TestAddGetOrder(t *testing.T) {
	q := fifo.New[int](3)
	q.Add(1)
	q.Add(2)
	q.Add(3)

	v, ok := q.Get()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Get()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetEmpty(t *testing.T) {
	q := fifo.New[string](2)
	_, ok := q.Get()
	assert.False(t, ok)
}

func TestOverflowDropsOldest(t *testing.T) {
	q := fifo.New[int](2)
	q.Add(1)
	q.Add(2)
	q.Add(3) // drops 1

	assert.Equal(t, uint64(1), q.DroppedCount())
	assert.Equal(t, 2, q.AvailableCount())

	v, ok := q.Get()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = q.Get()
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestWrapAround(t *testing.T) {
	q := fifo.New[int](2)
	for i := 0; i < 10; i++ {
		q.Add(i)
		v, ok := q.Get()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, uint64(0), q.DroppedCount())
}

func TestMinSizeClamped(t *testing.T) {
	q := fifo.New[int](0)
	assert.Equal(t, 1, q.MaxSize())
}

func TestConcurrentAddGet(t *testing.T) {
	q := fifo.New[int](100)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Add(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, q.AvailableCount())
}
