package stepgraph

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// FlowBuilder provides a fluent API for defining workflows:
//
//	flow := stepgraph.New("OnboardUser").
//	    Action("createAccount", createAccount).Then("isPro").
//	    Condition("isPro", "$plan", "equals", "pro", "welcomePro", "welcome").
//	    Action("welcomePro", sendProWelcome).
//	    Action("welcome", sendWelcome)
//
//	wf, err := flow.Register(engine)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := engine.Run(ctx, wf.ID, input)
//
// Steps are not linked implicitly; use Then to set the successor of the
// step added last. The first step added is the entry step unless Entry
// names another one.
type FlowBuilder struct {
	def Definition
}

// New creates a new workflow builder with the given name.
func New(name string) *FlowBuilder {
	return &FlowBuilder{
		def: Definition{
			Name:    name,
			Context: map[string]any{},
			Steps:   make([]StepDefinition, 0),
		},
	}
}

// Name returns the workflow name.
func (b *FlowBuilder) Name() string {
	return b.def.Name
}

// Definition returns a copy of the definition built so far.
func (b *FlowBuilder) Definition() Definition {
	def := b.def
	def.Context = maps.Clone(b.def.Context)
	def.Steps = slices.Clone(b.def.Steps)
	return def
}

// Step appends a step. An empty Name defaults to the ID, so the result is
// stored under "$" + ID.
func (b *FlowBuilder) Step(sd StepDefinition) *FlowBuilder {
	if sd.ID == "" {
		panic("stepgraph: step id must not be empty")
	}
	if sd.Name == "" {
		sd.Name = sd.ID
	}
	sd.Config = maps.Clone(sd.Config)
	b.def.Steps = append(b.def.Steps, sd)
	return b
}

// Action appends a step that calls fn.
func (b *FlowBuilder) Action(id string, fn StepFunc) *FlowBuilder {
	if fn == nil {
		panic(fmt.Sprintf("stepgraph: step %q has nil function", id))
	}
	return b.Step(StepDefinition{ID: id, Kind: KindAction, Fn: fn})
}

// Condition appends a step comparing field (a "$" context key or a literal)
// to value. The run continues at onTrue or onFalse; an empty branch ends
// the run on that side, except that Then can supply the true branch.
func (b *FlowBuilder) Condition(id, field, operator string, value any, onTrue, onFalse string) *FlowBuilder {
	cfg := map[string]any{
		"field":    field,
		"operator": operator,
		"value":    value,
	}
	if onTrue != "" {
		cfg["onTrue"] = onTrue
	}
	if onFalse != "" {
		cfg["onFalse"] = onFalse
	}
	return b.Step(StepDefinition{ID: id, Kind: KindCondition, Config: cfg})
}

// Loop appends a step that calls fn once per item of the list stored under
// the context key collection ($items when empty). fn may be nil, in which
// case the items are collected unchanged.
func (b *FlowBuilder) Loop(id, collection string, fn StepFunc) *FlowBuilder {
	var cfg map[string]any
	if collection != "" {
		cfg = map[string]any{"collection": collection}
	}
	return b.Step(StepDefinition{ID: id, Kind: KindLoop, Fn: fn, Config: cfg})
}

// Parallel appends a step that evaluates the given steps concurrently.
// The children must be added to the builder as well; they are not linked
// into the main flow by this call.
func (b *FlowBuilder) Parallel(id string, children ...string) *FlowBuilder {
	return b.Step(StepDefinition{
		ID:     id,
		Kind:   KindParallel,
		Config: map[string]any{"steps": slices.Clone(children)},
	})
}

// Delay appends a step that waits for d.
func (b *FlowBuilder) Delay(id string, d time.Duration) *FlowBuilder {
	return b.Step(StepDefinition{
		ID:     id,
		Kind:   KindDelay,
		Config: map[string]any{"ms": d.Milliseconds()},
	})
}

// Transform appends a step that maps the last result through fn.
func (b *FlowBuilder) Transform(id string, fn StepFunc) *FlowBuilder {
	if fn == nil {
		panic(fmt.Sprintf("stepgraph: step %q has nil function", id))
	}
	return b.Step(StepDefinition{ID: id, Kind: KindTransform, Fn: fn})
}

// Then sets the successor of the step added last.
func (b *FlowBuilder) Then(next string) *FlowBuilder {
	b.last().Next = next
	return b
}

// OnError sets the error policy of the step added last.
func (b *FlowBuilder) OnError(policy ErrorPolicy) *FlowBuilder {
	b.last().OnError = policy
	return b
}

// Named sets the display name of the step added last.
func (b *FlowBuilder) Named(name string) *FlowBuilder {
	b.last().Name = name
	return b
}

// Entry sets the entry step.
func (b *FlowBuilder) Entry(id string) *FlowBuilder {
	b.def.Entry = id
	return b
}

// Context seeds a workflow context value.
func (b *FlowBuilder) Context(key string, value any) *FlowBuilder {
	b.def.Context[key] = value
	return b
}

func (b *FlowBuilder) last() *StepDefinition {
	if len(b.def.Steps) == 0 {
		panic("stepgraph: no step to modify; add a step first")
	}
	return &b.def.Steps[len(b.def.Steps)-1]
}

// Register creates the built workflow on the given engine.
func (b *FlowBuilder) Register(eng Engine) (WorkflowSummary, error) {
	return Import(eng, b.Definition(), nil)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *FlowBuilder) MustRegister(eng Engine) WorkflowSummary {
	wf, err := b.Register(eng)
	if err != nil {
		panic(err)
	}
	return wf
}
