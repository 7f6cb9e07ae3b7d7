package stepgraph

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/petrijr/stepgraph/internal/taskqueue"
	"github.com/petrijr/stepgraph/pkg/worker"
)

// RunCallback receives the outcome of a run started with RunAsync.
type RunCallback func(ctx context.Context, taskID string, res *RunResult, err error)

// LocalRunner bundles an Engine, an in-memory task queue, and a Worker to run
// workflows in the background of the current process.
//
// Typical usage:
//
//	runner := stepgraph.NewLocalRunner(stepgraph.NewInMemoryEngine(), nil)
//	wf := stepgraph.New("my-flow").Action(...).MustRegister(runner.Engine)
//
//	_ = runner.StartWorkers(ctx, 2)
//	taskID, _ := runner.RunAsync(ctx, wf.ID, input)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine executes the queued runs.
	Engine Engine

	// Worker processes tasks from the queue using Engine.
	Worker *worker.Worker

	queue  *taskqueue.InMemoryQueue
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner around eng. onResult, if non-nil,
// is called from a worker goroutine after each queued run.
func NewLocalRunner(eng Engine, onResult RunCallback) *LocalRunner {
	q := taskqueue.NewInMemoryQueue(taskqueue.DefaultCapacity)
	logger := slog.Default()

	cfg := worker.Config{Logger: logger}
	if onResult != nil {
		cfg.OnResult = func(ctx context.Context, task taskqueue.Task, res *RunResult, err error) {
			onResult(ctx, task.ID, res, err)
		}
	}

	return &LocalRunner{
		Engine: eng,
		Worker: worker.NewWithConfig(eng, q, cfg),
		queue:  q,
		logger: logger,
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously call
// Worker.ProcessOne(ctx) until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("stepgraph: LocalRunner already started")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for range concurrency {
		go func() {
			defer r.wg.Done()
			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if ctx.Err() != nil {
					return
				}
				if err != nil && !processed {
					r.logger.ErrorContext(ctx, "runner_worker_error", "error", err)
				}
			}
		}()
	}
	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit. Runs in progress are cancelled; queued runs that were
// not picked up stay queued.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// RunAsync enqueues a run of workflowID and returns the task ID reported to
// the runner's callback.
func (r *LocalRunner) RunAsync(ctx context.Context, workflowID string, input map[string]any) (string, error) {
	return r.Worker.EnqueueRun(ctx, workflowID, input)
}

// RunAt enqueues a run that starts no earlier than at.
func (r *LocalRunner) RunAt(ctx context.Context, workflowID string, input map[string]any, at time.Time) (string, error) {
	return r.Worker.EnqueueRunAt(ctx, workflowID, input, at)
}

// Pending returns the number of queued runs not yet picked up.
func (r *LocalRunner) Pending() int {
	return r.queue.Len()
}
