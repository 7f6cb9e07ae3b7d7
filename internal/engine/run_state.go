package engine

import (
	"slices"
	"sync"
	"time"

	"github.com/petrijr/stepgraph/pkg/api"
)

// runState is the mutable state of one run. A fresh runState is allocated by
// every Run call, so concurrent runs of the same workflow never share it.
type runState struct {
	id string
	wc *api.Context

	mu          sync.Mutex
	status      api.Status
	current     string
	history     []api.ExecutionRecord
	executed    int
	err         error
	startedAt   time.Time
	completedAt time.Time
}

func newRunState(id string, wc *api.Context, startedAt time.Time) *runState {
	return &runState{
		id:        id,
		wc:        wc,
		status:    api.StatusRunning,
		startedAt: startedAt,
	}
}

// runSnapshot is a consistent copy of a runState.
type runSnapshot struct {
	status      api.Status
	current     string
	history     []api.ExecutionRecord
	executed    int
	err         error
	startedAt   time.Time
	completedAt time.Time
}

func (rs *runState) snapshot() runSnapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return runSnapshot{
		status:      rs.status,
		current:     rs.current,
		history:     slices.Clone(rs.history),
		executed:    rs.executed,
		err:         rs.err,
		startedAt:   rs.startedAt,
		completedAt: rs.completedAt,
	}
}

func (rs *runState) running() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.status == api.StatusRunning
}

func (rs *runState) setCurrent(stepID string) {
	rs.mu.Lock()
	rs.current = stepID
	rs.mu.Unlock()
}

// append records an attempt. Condition evaluations only route the run, so
// they are kept in the history but not counted as executed steps.
func (rs *runState) append(rec api.ExecutionRecord, routing bool) {
	rs.mu.Lock()
	rs.history = append(rs.history, rec)
	if !routing {
		rs.executed++
	}
	rs.mu.Unlock()
}

// pause flips a running run to paused. The run loop notices before the next
// step; the step in flight is not interrupted.
func (rs *runState) pause() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.status != api.StatusRunning {
		return false
	}
	rs.status = api.StatusPaused
	return true
}

func (rs *runState) fail(err error) {
	rs.mu.Lock()
	rs.status = api.StatusFailed
	rs.err = err
	rs.mu.Unlock()
}

// finish completes a run that is still running and stamps the end time.
func (rs *runState) finish(at time.Time) runSnapshot {
	rs.mu.Lock()
	if rs.status == api.StatusRunning {
		rs.status = api.StatusCompleted
	}
	rs.current = ""
	rs.completedAt = at
	rs.mu.Unlock()
	return rs.snapshot()
}
