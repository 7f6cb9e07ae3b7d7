package taskqueue

import (
	"context"
	"time"
)

// Task asks a worker to run a workflow.
type Task struct {
	ID         string
	WorkflowID string
	Input      map[string]any

	EnqueuedAt time.Time

	// NotBefore is the earliest time this task should be processed. The zero
	// value means immediately.
	NotBefore time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
