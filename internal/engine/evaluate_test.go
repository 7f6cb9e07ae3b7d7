package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/stepgraph/pkg/api"
)

func TestLoopOverConfiguredItems(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "loop", nil)
	mustAdd(t, eng, wfID, api.StepSpec{
		Kind:   api.KindLoop,
		Config: map[string]any{"items": []int{1, 2, 3}},
		Handler: api.ItemFunc(func(ctx context.Context, item any, index int) (any, error) {
			return item.(int)*10 + index, nil
		}),
	})

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	require.Equal(t, []any{10, 21, 32}, res.Result)

	item, ok, err := eng.GetContextValue(wfID, api.KeyItem)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, item)

	idx, _, err := eng.GetContextValue(wfID, api.KeyIndex)
	require.NoError(t, err)
	require.Equal(t, 2, idx)
}

func TestLoopReadsCollectionFromContext(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "loop-ctx", nil)
	mustAdd(t, eng, wfID, api.StepSpec{ID: "named", Kind: api.KindLoop, Config: map[string]any{"collection": "orders"}, Next: "default"})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "default", Kind: api.KindLoop})

	res := mustRun(t, eng, wfID, map[string]any{
		"orders":     []any{"o1", "o2"},
		api.KeyItems: []string{"x"},
	})
	require.Equal(t, api.StatusCompleted, res.Status)

	history, err := eng.GetHistory(wfID)
	require.NoError(t, err)
	assert.Equal(t, []any{"o1", "o2"}, history[0].Result, "passthrough without handler")
	assert.Equal(t, []any{"x"}, history[1].Result)
}

func TestLoopEdgeCases(t *testing.T) {
	eng := NewInMemoryEngine()

	missing := mustCreate(t, eng, "missing", nil)
	mustAdd(t, eng, missing, api.StepSpec{Kind: api.KindLoop, Config: map[string]any{"collection": "nothing"}})
	res := mustRun(t, eng, missing, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	require.Equal(t, []any{}, res.Result)

	notList := mustCreate(t, eng, "not-list", nil)
	mustAdd(t, eng, notList, api.StepSpec{Kind: api.KindLoop, Config: map[string]any{"items": map[string]any{"a": 1}}})
	res = mustRun(t, eng, notList, nil)
	require.Equal(t, api.StatusFailed, res.Status)
	require.Contains(t, res.Error, "loop items must be a list")

	failing := mustCreate(t, eng, "failing", nil)
	mustAdd(t, eng, failing, api.StepSpec{
		Kind:   api.KindLoop,
		Config: map[string]any{"items": []any{"a", "b"}},
		Handler: api.ItemFunc(func(ctx context.Context, item any, index int) (any, error) {
			if item == "b" {
				return nil, errors.New("bad item")
			}
			return item, nil
		}),
	})
	res = mustRun(t, eng, failing, nil)
	require.Equal(t, api.StatusFailed, res.Status)
	require.Equal(t, "loop item 1: bad item", res.Error)
}

func TestParallelKeepsRequestedOrder(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "fanout", nil)
	mustAdd(t, eng, wfID, api.StepSpec{ID: "all", Kind: api.KindParallel, Config: map[string]any{"steps": []any{"A", "B", "C", "ghost"}}})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "A", OnError: api.PolicyContinue, Handler: func(ctx context.Context, wc *api.Context) (any, error) {
		time.Sleep(30 * time.Millisecond)
		return "a", nil
	}})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "B", OnError: api.PolicyContinue, Handler: fails("b failed")})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "C", Handler: api.Static("c")})

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	require.Equal(t, []api.ParallelResult{
		{ID: "A", Result: "a"},
		{ID: "B", Error: "b failed"},
		{ID: "C", Result: "c"},
		{ID: "ghost", Error: "step not found: ghost"},
	}, res.Result)

	// Children are evaluated, not executed: only the parallel step is recorded
	// and $lastError stays unset despite B's continue policy.
	require.Equal(t, 1, res.StepsExecuted)
	_, ok, err := eng.GetContextValue(wfID, api.KeyLastError)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParallelRespectsMaxParallelism(t *testing.T) {
	eng := NewEngine(Config{MaxParallelism: 1})
	wfID := mustCreate(t, eng, "serial", nil)

	var (
		mu            sync.Mutex
		running, peak int
	)
	track := func(ctx context.Context, wc *api.Context) (any, error) {
		mu.Lock()
		running++
		peak = max(peak, running)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	}
	mustAdd(t, eng, wfID, api.StepSpec{Kind: api.KindParallel, Config: map[string]any{"steps": []string{"x", "y", "z"}}})
	for _, id := range []string{"x", "y", "z"} {
		mustAdd(t, eng, wfID, api.StepSpec{ID: id, Handler: track})
	}

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	require.Equal(t, 1, peak)
}

func TestParallelSelfReferenceIsAnError(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "self", nil)
	mustAdd(t, eng, wfID, api.StepSpec{ID: "p", Kind: api.KindParallel, Config: map[string]any{"steps": []any{"p", "q"}}})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "q", Kind: api.KindParallel, Config: map[string]any{"steps": []any{"p"}}})

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)

	results := res.Result.([]api.ParallelResult)
	require.Contains(t, results[0].Error, "parallel step includes itself")
	nested := results[1].Result.([]api.ParallelResult)
	require.Contains(t, nested[0].Error, "parallel step includes itself")
}

func TestDelay(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "delay", nil)
	mustAdd(t, eng, wfID, api.StepSpec{Kind: api.KindDelay, Config: map[string]any{"ms": 5}, Next: "d2"})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "d2", Kind: api.KindDelay, Config: map[string]any{"delay": "2"}})

	start := time.Now()
	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	require.GreaterOrEqual(t, time.Since(start), 7*time.Millisecond)
	require.Equal(t, map[string]any{"delayed": int64(2)}, res.Result)

	history, err := eng.GetHistory(wfID)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"delayed": int64(5)}, history[0].Result)
}

func TestDelayHonoursCancellation(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "long-delay", nil)
	mustAdd(t, eng, wfID, api.StepSpec{Kind: api.KindDelay, Config: map[string]any{"ms": 60_000}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := eng.Run(ctx, wfID, nil)
	require.NoError(t, err)
	require.Equal(t, api.StatusFailed, res.Status)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestTransform(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "transform", nil)
	mustAdd(t, eng, wfID, api.StepSpec{Handler: api.Static(5), Next: "inc"})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "inc", Kind: api.KindTransform, Handler: api.TypedTransform(func(ctx context.Context, n int) (int, error) {
		return n + 1, nil
	}), Next: "pass"})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "pass", Kind: api.KindTransform})

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	require.Equal(t, 6, res.Result)
}

func TestTransformWithoutPriorResultSeesContext(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "transform-ctx", map[string]any{"seed": "s"})
	mustAdd(t, eng, wfID, api.StepSpec{Kind: api.KindTransform})

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusCompleted, res.Status)
	snap, ok := res.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "s", snap["seed"])
}

func TestTypedTransformRejectsWrongInput(t *testing.T) {
	eng := NewInMemoryEngine()
	wfID := mustCreate(t, eng, "typed", nil)
	mustAdd(t, eng, wfID, api.StepSpec{Handler: api.Static("text"), Next: "t"})
	mustAdd(t, eng, wfID, api.StepSpec{ID: "t", Kind: api.KindTransform, Handler: api.TypedTransform(func(ctx context.Context, n int) (int, error) {
		return n, nil
	})})

	res := mustRun(t, eng, wfID, nil)
	require.Equal(t, api.StatusFailed, res.Status)
	require.Contains(t, res.Error, "expected int, got string")
}
