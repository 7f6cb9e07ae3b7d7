package api

import (
	"context"
	"fmt"
)

// Static returns a StepFunc that always yields v.
func Static(v any) StepFunc {
	return func(ctx context.Context, wc *Context) (any, error) {
		return v, nil
	}
}

// TransformFunc adapts a value-to-value function for use as the handler of a
// transform step. fn receives the last stored result, or a snapshot of the
// whole context when no step has produced a result yet.
func TransformFunc(fn func(ctx context.Context, in any) (any, error)) StepFunc {
	return func(ctx context.Context, wc *Context) (any, error) {
		return fn(ctx, TransformSubject(wc))
	}
}

// TransformSubject returns the value a transform step operates on.
func TransformSubject(wc *Context) any {
	if v, ok := wc.LastResult(); ok {
		return v
	}
	return wc.Snapshot()
}

// ItemFunc adapts a per-item function for use as the body of a loop step.
func ItemFunc(fn func(ctx context.Context, item any, index int) (any, error)) StepFunc {
	return func(ctx context.Context, wc *Context) (any, error) {
		item, idx, _ := wc.Item()
		return fn(ctx, item, idx)
	}
}

// TypedTransform wraps a strongly-typed function into a transform handler.
// The subject must be assignable to I.
//
//	api.TypedTransform(func(ctx context.Context, o Order) (int, error) { ... })
func TypedTransform[I, O any](fn func(context.Context, I) (O, error)) StepFunc {
	return TransformFunc(func(ctx context.Context, in any) (any, error) {
		typed, ok := in.(I)
		if !ok {
			var zero I
			return nil, fmt.Errorf("transform input: expected %T, got %T", zero, in)
		}
		return fn(ctx, typed)
	})
}
