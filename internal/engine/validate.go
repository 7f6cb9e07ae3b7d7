package engine

import (
	"errors"
	"fmt"

	"github.com/petrijr/stepgraph/pkg/api"
)

// validatePlan checks every step reference of the graph: static links,
// condition branches, error handler steps and parallel children. All
// dangling references are reported together.
func validatePlan(p *runPlan) error {
	if err := checkRunnable(p); err != nil {
		return err
	}

	var errs []error
	dangling := func(stepID, field, target string) {
		if target == "" {
			return
		}
		if _, ok := p.steps[target]; !ok {
			errs = append(errs, fmt.Errorf("%w: step %q %s -> %q", api.ErrDanglingReference, stepID, field, target))
		}
	}

	for _, id := range p.order {
		step := p.steps[id]
		dangling(id, "next", step.Next)
		if handler, ok := step.OnError.HandlerStep(); ok {
			dangling(id, "onError", handler)
		}
		switch step.Kind {
		case api.KindCondition:
			dangling(id, "onTrue", step.ConfigString("onTrue"))
			dangling(id, "onFalse", step.ConfigString("onFalse"))
		case api.KindParallel:
			raw, _ := step.ConfigValue("steps")
			children, ok := toList(raw)
			if raw != nil && !ok {
				errs = append(errs, fmt.Errorf("%w: parallel step %q: steps must be a list, got %T", api.ErrConfiguration, id, raw))
				continue
			}
			for _, child := range children {
				dangling(id, "steps", toString(child, true))
			}
		}
	}
	return errors.Join(errs...)
}

func (e *engineImpl) Validate(workflowID string) error {
	var plan *runPlan
	err := e.registry.read(workflowID, func(d *definition) error {
		plan = d.plan()
		return nil
	})
	if err != nil {
		return err
	}
	return validatePlan(plan)
}
