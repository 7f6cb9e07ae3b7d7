package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/petrijr/stepgraph/pkg/api"
)

func mustCreate(t *testing.T, eng api.Engine, name string, seed map[string]any) string {
	t.Helper()
	wf, err := eng.Create(name, api.CreateOptions{Context: seed})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", name, err)
	}
	return wf.ID
}

func mustAdd(t *testing.T, eng api.Engine, wfID string, spec api.StepSpec) string {
	t.Helper()
	step, err := eng.AddStep(wfID, spec)
	if err != nil {
		t.Fatalf("AddStep(%+v) failed: %v", spec, err)
	}
	return step.ID
}

func mustRun(t *testing.T, eng api.Engine, wfID string, input map[string]any) *api.RunResult {
	t.Helper()
	res, err := eng.Run(context.Background(), wfID, input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

func fails(msg string) api.StepFunc {
	return func(ctx context.Context, wc *api.Context) (any, error) {
		return nil, &testError{msg}
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

// fakeObserver records all calls from the engine so we can assert on them.
type fakeObserver struct {
	mu sync.Mutex

	runStarts    []api.RunInfo
	runCompletes []api.RunInfo
	runFails     []error

	stepStarts    []string
	stepCompletes []stepEvent
}

type stepEvent struct {
	StepID   string
	Err      error
	Duration time.Duration
}

func (o *fakeObserver) OnRunStart(ctx context.Context, run api.RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runStarts = append(o.runStarts, run)
}

func (o *fakeObserver) OnRunCompleted(ctx context.Context, run api.RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runCompletes = append(o.runCompletes, run)
}

func (o *fakeObserver) OnRunFailed(ctx context.Context, run api.RunInfo, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runFails = append(o.runFails, err)
}

func (o *fakeObserver) OnStepStart(ctx context.Context, run api.RunInfo, step api.Step) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stepStarts = append(o.stepStarts, step.ID)
}

func (o *fakeObserver) OnStepCompleted(ctx context.Context, run api.RunInfo, step api.Step, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stepCompletes = append(o.stepCompletes, stepEvent{StepID: step.ID, Err: err, Duration: d})
}
