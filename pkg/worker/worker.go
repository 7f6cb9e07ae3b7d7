package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/stepgraph/internal/taskqueue"
	"github.com/petrijr/stepgraph/pkg/api"
)

// ResultFunc receives the outcome of a queued run. err is only set when the
// run could not start (configuration errors); step failures are reported in
// res.
type ResultFunc func(ctx context.Context, task taskqueue.Task, res *api.RunResult, err error)

// Config controls a Worker.
type Config struct {
	// OnResult is called after every processed task.
	OnResult ResultFunc
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Worker pulls run requests from a Queue and executes them using an Engine.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
	cfg    Config
}

// New creates a Worker with default configuration.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return NewWithConfig(engine, queue, Config{})
}

// NewWithConfig creates a Worker with the given configuration.
func NewWithConfig(engine api.Engine, queue taskqueue.Queue, cfg Config) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Worker{
		engine: engine,
		queue:  queue,
		cfg:    cfg,
	}
}

// EnqueueRun enqueues a run of workflowID and returns the task ID. It does
// NOT run the workflow itself; that is done by ProcessOne.
func (w *Worker) EnqueueRun(ctx context.Context, workflowID string, input map[string]any) (string, error) {
	return w.EnqueueRunAt(ctx, workflowID, input, time.Time{})
}

// EnqueueRunAt enqueues a run that is processed no earlier than at.
func (w *Worker) EnqueueRunAt(ctx context.Context, workflowID string, input map[string]any, at time.Time) (string, error) {
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Input:      input,
		EnqueuedAt: w.cfg.Clock(),
		NotBefore:  at,
	}
	if err := w.queue.Enqueue(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// ProcessOne pulls a single task from the queue and runs it.
// Returns (processed, error):
//   - processed == false: no task was obtained because ctx ended.
//   - processed == true: a run was attempted; err reports configuration
//     errors returned by Engine.Run.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	if wait := task.NotBefore.Sub(w.cfg.Clock()); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			// Put the task back so it is not lost on shutdown.
			if reErr := w.queue.Enqueue(context.WithoutCancel(ctx), *task); reErr != nil {
				w.cfg.Logger.WarnContext(ctx, "task_requeue_failed",
					"task_id", task.ID,
					"workflow_id", task.WorkflowID,
					"error", reErr,
				)
			}
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	res, runErr := w.engine.Run(ctx, task.WorkflowID, task.Input)
	if runErr != nil {
		w.cfg.Logger.WarnContext(ctx, "task_run_rejected",
			"task_id", task.ID,
			"workflow_id", task.WorkflowID,
			"error", runErr,
		)
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(ctx, *task, res, runErr)
	}
	return true, runErr
}
