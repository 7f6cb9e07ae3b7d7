package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_EnqueueDequeueOrder(t *testing.T) {
	q := NewInMemoryQueue(0)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, q.Enqueue(ctx, Task{ID: id, WorkflowID: "wf"}))
	}
	assert.Equal(t, 3, q.Len())

	var got []string
	for range 3 {
		task, err := q.Dequeue(ctx)
		require.NoError(t, err)
		got = append(got, task.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, got)
	assert.Equal(t, 0, q.Len())
}

func TestInMemoryQueue_DequeueRespectsContext(t *testing.T) {
	q := NewInMemoryQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	task, err := q.Dequeue(ctx)
	assert.Nil(t, task)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueue_EnqueueBlocksWhenFull(t *testing.T) {
	q := NewInMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), Task{ID: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Task{ID: "b"}), context.Canceled)
	assert.Equal(t, 1, q.Len())
}
