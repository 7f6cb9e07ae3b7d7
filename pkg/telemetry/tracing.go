package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petrijr/stepgraph/pkg/api"
)

// InstrumentationName is the tracer name used by NewTracingObserver callers
// that obtain their tracer from a global provider.
const InstrumentationName = "github.com/petrijr/stepgraph"

// TracingObserver emits one span per run and one child span per step
// evaluation. Spans are tracked by run ID, so the callbacks of one run must
// come from the same engine.
type TracingObserver struct {
	tracer trace.Tracer

	mu    sync.Mutex
	runs  map[string]trace.Span
	steps map[stepKey]trace.Span
}

type stepKey struct {
	runID  string
	stepID string
}

var _ api.Observer = (*TracingObserver)(nil)

// NewTracingObserver creates an observer that records spans with tracer.
func NewTracingObserver(tracer trace.Tracer) *TracingObserver {
	return &TracingObserver{
		tracer: tracer,
		runs:   make(map[string]trace.Span),
		steps:  make(map[stepKey]trace.Span),
	}
}

func (o *TracingObserver) OnRunStart(ctx context.Context, run api.RunInfo) {
	_, span := o.tracer.Start(ctx, "stepgraph.run",
		trace.WithTimestamp(run.StartedAt),
		trace.WithAttributes(
			attribute.String("workflow.id", run.WorkflowID),
			attribute.String("workflow.name", run.WorkflowName),
			attribute.String("run.id", run.RunID),
		),
	)
	o.mu.Lock()
	o.runs[run.RunID] = span
	o.mu.Unlock()
}

func (o *TracingObserver) OnRunCompleted(ctx context.Context, run api.RunInfo) {
	span := o.takeRun(run.RunID)
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("run.status", string(run.Status)))
	span.SetStatus(codes.Ok, "")
	span.End()
}

func (o *TracingObserver) OnRunFailed(ctx context.Context, run api.RunInfo, err error) {
	span := o.takeRun(run.RunID)
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("run.status", string(api.StatusFailed)))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func (o *TracingObserver) OnStepStart(ctx context.Context, run api.RunInfo, step api.Step) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if parent, ok := o.runs[run.RunID]; ok {
		ctx = trace.ContextWithSpan(ctx, parent)
	}
	_, span := o.tracer.Start(ctx, "stepgraph.step",
		trace.WithAttributes(
			attribute.String("run.id", run.RunID),
			attribute.String("step.id", step.ID),
			attribute.String("step.name", step.Name),
			attribute.String("step.kind", string(step.Kind)),
		),
	)
	o.steps[stepKey{run.RunID, step.ID}] = span
}

func (o *TracingObserver) OnStepCompleted(ctx context.Context, run api.RunInfo, step api.Step, err error, d time.Duration) {
	key := stepKey{run.RunID, step.ID}
	o.mu.Lock()
	span, ok := o.steps[key]
	delete(o.steps, key)
	o.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(attribute.Int64("step.duration_ms", d.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (o *TracingObserver) takeRun(runID string) trace.Span {
	o.mu.Lock()
	defer o.mu.Unlock()
	span := o.runs[runID]
	delete(o.runs, runID)
	return span
}
