package main

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/stepgraph"
)

// builtinHandlers is the catalog available to YAML definitions run by the
// CLI.
//
//   - echo returns the run input
//   - fail always fails, with config "message" as the error text
//   - now returns the current time in RFC 3339 format
//   - context returns a snapshot of the run context
func builtinHandlers(clock func() time.Time) stepgraph.HandlerCatalog {
	return stepgraph.HandlerCatalog{
		"echo": func(ctx context.Context, wc *stepgraph.Context) (any, error) {
			return wc.Input(), nil
		},
		"fail": func(ctx context.Context, wc *stepgraph.Context) (any, error) {
			msg := "step failed"
			if step, ok := stepgraph.StepFromContext(ctx); ok {
				if m := step.ConfigString("message"); m != "" {
					msg = m
				}
			}
			return nil, errors.New(msg)
		},
		"now": func(ctx context.Context, wc *stepgraph.Context) (any, error) {
			return clock().UTC().Format(time.RFC3339), nil
		},
		"context": func(ctx context.Context, wc *stepgraph.Context) (any, error) {
			return wc.Snapshot(), nil
		},
	}
}
