package engine

import (
	"context"
	"fmt"

	"github.com/petrijr/stepgraph/pkg/api"
)

// executor walks the step graph of one run.
type executor struct {
	e    *engineImpl
	plan *runPlan
	rs   *runState
	info api.RunInfo
}

func (e *engineImpl) Run(ctx context.Context, workflowID string, input map[string]any) (*api.RunResult, error) {
	var (
		plan *runPlan
		rs   *runState
		def  *definition
	)
	err := e.registry.write(workflowID, func(d *definition) error {
		p := d.plan()
		if err := checkRunnable(p); err != nil {
			return err
		}
		if e.cfg.StrictValidation {
			if err := validatePlan(p); err != nil {
				return err
			}
		}
		plan, def = p, d
		rs = newRunState(e.cfg.NewID(), api.NewContext(p.seed, input), e.cfg.Clock())
		d.latest = rs
		d.active[rs.id] = rs
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		e.registry.mu.Lock()
		delete(def.active, rs.id)
		e.registry.mu.Unlock()
	}()

	x := &executor{
		e:    e,
		plan: plan,
		rs:   rs,
		info: api.RunInfo{
			RunID:        rs.id,
			WorkflowID:   plan.workflowID,
			WorkflowName: plan.name,
			Status:       api.StatusRunning,
			StartedAt:    rs.startedAt,
		},
	}
	return x.run(ctx), nil
}

func (x *executor) run(ctx context.Context) *api.RunResult {
	e := x.e
	e.observer.OnRunStart(ctx, x.info)
	x.saveRun(ctx, x.rs.snapshot())

	x.loop(ctx)

	snap := x.rs.finish(e.cfg.Clock())
	x.info.Status = snap.status
	x.saveRun(ctx, snap)

	result, _ := x.rs.wc.LastResult()
	res := &api.RunResult{
		WorkflowID:    x.plan.workflowID,
		RunID:         x.rs.id,
		Status:        snap.status,
		StepsExecuted: snap.executed,
		Duration:      snap.completedAt.Sub(snap.startedAt),
		Result:        result,
	}
	if snap.err != nil {
		res.Error = snap.err.Error()
		res.Err = snap.err
		e.observer.OnRunFailed(ctx, x.info, snap.err)
	} else {
		e.observer.OnRunCompleted(ctx, x.info)
	}
	return res
}

func (x *executor) loop(ctx context.Context) {
	e := x.e
	wc := x.rs.wc
	current := x.plan.entry
	transitions := 0

	for current != "" && x.rs.running() {
		if err := ctx.Err(); err != nil {
			x.abort(current, err)
			return
		}
		if e.cfg.MaxTransitions > 0 && transitions >= e.cfg.MaxTransitions {
			x.abort(current, fmt.Errorf("%w (%d steps)", api.ErrTransitionLimit, e.cfg.MaxTransitions))
			return
		}
		transitions++

		step, ok := x.plan.steps[current]
		if !ok {
			x.abort(current, fmt.Errorf("%w: %s", api.ErrUnresolvedStep, current))
			return
		}
		x.rs.setCurrent(step.ID)

		result, err := x.attempt(ctx, step)
		if err != nil {
			switch step.OnError {
			case api.PolicyContinue:
				msg := err.Error()
				wc.SetLastError(msg)
				result = map[string]any{"error": msg}
			case api.PolicyRetry:
				result, err = x.attempt(ctx, step)
				if err != nil {
					x.abort(step.ID, err)
					return
				}
			default:
				if handler, ok := step.OnError.HandlerStep(); ok {
					if _, exists := x.plan.steps[handler]; exists {
						current = handler
						continue
					}
					err = fmt.Errorf("%w (error handler %q not found)", err, handler)
				}
				x.abort(step.ID, err)
				return
			}
		}

		wc.SetLastResult(result)
		if step.Name != "" {
			// A step named after a reserved key writes that key; a result of
			// the wrong type for it is dropped.
			_ = wc.Set(step.ContextKey(), result)
		}
		current = successor(step, result)
	}
}

// successor picks the next step: the branch chosen by a condition step, or
// the static link for everything else.
func successor(step api.Step, result any) string {
	if step.Kind == api.KindCondition {
		if cr, ok := result.(api.ConditionResult); ok {
			return cr.Next
		}
	}
	return step.Next
}

func (x *executor) abort(stepID string, err error) {
	x.rs.fail(&api.RunAbortedError{
		WorkflowID: x.plan.workflowID,
		RunID:      x.rs.id,
		StepID:     stepID,
		Err:        err,
	})
}

// attempt evaluates a step once, notifies the observer and appends the
// execution record. Failures are returned as *api.StepError.
func (x *executor) attempt(ctx context.Context, step api.Step) (any, error) {
	e := x.e
	stepCtx := api.WithStep(ctx, step)
	if e.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, e.cfg.StepTimeout)
		defer cancel()
	}

	start := e.cfg.Clock()
	e.observer.OnStepStart(stepCtx, x.info, step)

	result, err := x.evaluate(stepCtx, x.rs.wc, step)
	if err != nil {
		err = &api.StepError{StepID: step.ID, StepName: step.Name, Kind: step.Kind, Err: err}
	}

	end := e.cfg.Clock()
	d := end.Sub(start)
	e.observer.OnStepCompleted(stepCtx, x.info, step, err, d)

	rec := api.ExecutionRecord{
		StepID:    step.ID,
		StepName:  step.Name,
		Status:    api.RecordCompleted,
		Result:    result,
		Timestamp: end,
		Duration:  d,
	}
	if err != nil {
		rec.Status = api.RecordFailed
		rec.Result = nil
		rec.Error = err.Error()
		result = nil
	}
	x.record(ctx, rec, step.Kind == api.KindCondition)
	return result, err
}

func (x *executor) record(ctx context.Context, rec api.ExecutionRecord, routing bool) {
	x.rs.append(rec, routing)
	if err := x.e.history.AppendRecord(context.WithoutCancel(ctx), x.rs.id, rec); err != nil {
		x.warnHistory(ctx, "append_record", err)
	}
}

func (x *executor) saveRun(ctx context.Context, snap runSnapshot) {
	run := api.RunSummary{
		RunID:         x.rs.id,
		WorkflowID:    x.plan.workflowID,
		WorkflowName:  x.plan.name,
		Status:        snap.status,
		StepsExecuted: snap.executed,
		StartedAt:     snap.startedAt,
		CompletedAt:   snap.completedAt,
	}
	if snap.err != nil {
		run.Error = snap.err.Error()
	}
	// The final summary is written even when the run was cancelled.
	if err := x.e.history.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		x.warnHistory(ctx, "save_run", err)
	}
}

func (x *executor) warnHistory(ctx context.Context, op string, err error) {
	x.e.logger.WarnContext(ctx, "history_store_failed",
		"op", op,
		"workflow", x.plan.name,
		"run_id", x.rs.id,
		"error", err,
	)
}

// checkRunnable reports the configuration problems that prevent any run.
func checkRunnable(p *runPlan) error {
	if len(p.steps) == 0 {
		return fmt.Errorf("%w: %s", api.ErrEmptyWorkflow, p.workflowID)
	}
	if p.entry == "" {
		return fmt.Errorf("%w: %s", api.ErrNoEntryStep, p.workflowID)
	}
	if _, ok := p.steps[p.entry]; !ok {
		return fmt.Errorf("%w: %s (entry %q)", api.ErrNoEntryStep, p.workflowID, p.entry)
	}
	return nil
}
