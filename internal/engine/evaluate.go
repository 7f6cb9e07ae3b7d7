package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/stepgraph/pkg/api"
)

// defaultDelay applies to delay steps without a configured duration.
const defaultDelay = 1000 * time.Millisecond

var errParallelCycle = errors.New("parallel step includes itself")

// evaluate applies the evaluation rule of the step's kind. Unknown kinds are
// evaluated as actions.
func (x *executor) evaluate(ctx context.Context, wc *api.Context, step api.Step) (any, error) {
	switch step.Kind {
	case api.KindCondition:
		return evalCondition(wc, step), nil
	case api.KindLoop:
		return x.evalLoop(ctx, wc, step)
	case api.KindParallel:
		return x.evalParallel(ctx, wc, step)
	case api.KindDelay:
		return evalDelay(ctx, step)
	case api.KindTransform:
		return x.evalTransform(ctx, wc, step)
	default:
		return x.evalAction(ctx, wc, step)
	}
}

// call invokes a handler, turning a panic into an error.
func (x *executor) call(ctx context.Context, wc *api.Context, step api.Step) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.e.logger.ErrorContext(ctx, "step_panicked",
				"workflow", x.plan.name,
				"run_id", x.rs.id,
				"step", step.Name,
				"panic", r,
			)
			result, err = nil, &api.PanicError{Value: r}
		}
	}()
	return step.Handler(ctx, wc)
}

func (x *executor) evalAction(ctx context.Context, wc *api.Context, step api.Step) (any, error) {
	if step.Handler != nil {
		return x.call(ctx, wc, step)
	}
	v, _ := step.ConfigValue("result")
	return v, nil
}

func (x *executor) evalTransform(ctx context.Context, wc *api.Context, step api.Step) (any, error) {
	if step.Handler != nil {
		return x.call(ctx, wc, step)
	}
	return api.TransformSubject(wc), nil
}

func (x *executor) evalLoop(ctx context.Context, wc *api.Context, step api.Step) (any, error) {
	items, err := loopItems(wc, step)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bound := wc.Bind(item, i)
		if step.Handler == nil {
			out = append(out, item)
			continue
		}
		v, err := x.call(ctx, bound, step)
		if err != nil {
			return nil, fmt.Errorf("loop item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// loopItems resolves the list a loop step iterates: config "items", or the
// context key named by config "collection" (default $items). A missing
// source yields no items.
func loopItems(wc *api.Context, step api.Step) ([]any, error) {
	src, ok := step.ConfigValue("items")
	if !ok {
		key := step.ConfigString("collection")
		if key == "" {
			key = api.KeyItems
		}
		src, ok = wc.Get(key)
	}
	if !ok || src == nil {
		return nil, nil
	}
	items, ok := toList(src)
	if !ok {
		return nil, fmt.Errorf("loop items must be a list, got %T", src)
	}
	return items, nil
}

// toList converts any slice or array to []any.
func toList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

type parallelPathKey struct{}

// evalParallel evaluates the children named in config "steps" concurrently.
// Children run their kind rule only: their error policies are ignored and a
// failure becomes the Error of that child's entry.
func (x *executor) evalParallel(ctx context.Context, wc *api.Context, step api.Step) (any, error) {
	raw, _ := step.ConfigValue("steps")
	list, ok := toList(raw)
	if raw != nil && !ok {
		return nil, fmt.Errorf("parallel steps must be a list of step ids, got %T", raw)
	}

	// Nested parallel steps carry their ancestry so a cycle fails instead
	// of recursing forever.
	path, _ := ctx.Value(parallelPathKey{}).([]string)
	path = append(slices.Clone(path), step.ID)
	ctx = context.WithValue(ctx, parallelPathKey{}, path)

	results := make([]api.ParallelResult, len(list))
	var g errgroup.Group
	if x.e.cfg.MaxParallelism > 0 {
		g.SetLimit(x.e.cfg.MaxParallelism)
	}
	for i, item := range list {
		id := toString(item, true)
		results[i].ID = id
		g.Go(func() error {
			v, err := x.evalChild(ctx, wc, id, path)
			if err != nil {
				results[i].Error = err.Error()
			} else {
				results[i].Result = v
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (x *executor) evalChild(ctx context.Context, wc *api.Context, id string, path []string) (any, error) {
	if slices.Contains(path, id) {
		return nil, fmt.Errorf("%w: %s", errParallelCycle, id)
	}
	child, ok := x.plan.steps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrUnresolvedStep, id)
	}
	return x.evaluate(api.WithStep(ctx, child), wc, child)
}

func evalDelay(ctx context.Context, step api.Step) (any, error) {
	d := defaultDelay
	for _, key := range []string{"ms", "delay"} {
		if v, ok := step.ConfigValue(key); ok {
			ms := toNumber(v, true)
			if math.IsNaN(ms) || ms < 0 {
				ms = 0
			}
			d = time.Duration(ms * float64(time.Millisecond))
			break
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return map[string]any{"delayed": d.Milliseconds()}, nil
}
