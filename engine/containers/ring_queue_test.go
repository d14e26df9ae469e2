package containers_test

import (
	"testing"

	"github.com/spaghettifunk/wreck/engine/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueOrder(t *testing.T) {
	rq := containers.NewRingQueue[int](3)
	require.True(t, rq.IsEmpty())

	for i := 1; i <= 3; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue(4), containers.ErrQueueFull)

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// wraps around
	require.NoError(t, rq.Enqueue(4))
	var got []int
	for !rq.IsEmpty() {
		v, err := rq.Dequeue()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{2, 3, 4}, got)
}

func TestRingQueueEmpty(t *testing.T) {
	rq := containers.NewRingQueue[string](1)
	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, containers.ErrQueueEmpty)
	_, err = rq.Peek()
	assert.ErrorIs(t, err, containers.ErrQueueEmpty)
	assert.Equal(t, 0, rq.Len())
}
