package taskqueue

import (
	"context"
)

// DefaultCapacity is used when NewInMemoryQueue is given a non-positive size.
const DefaultCapacity = 1024

// InMemoryQueue is a Queue backed by a buffered channel. Tasks are handed out
// in FIFO order. It is safe for concurrent use.
type InMemoryQueue struct {
	ch chan Task
}

// NewInMemoryQueue creates a new queue with the given capacity. Enqueue
// blocks while the queue is full.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryQueue{
		ch: make(chan Task, capacity),
	}
}

var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case t := <-q.ch:
		return &t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *InMemoryQueue) Len() int {
	return len(q.ch)
}
