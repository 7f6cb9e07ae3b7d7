package api

import (
	"context"
	"strings"
	"time"
)

// Status represents the lifecycle state of a workflow run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
)

// Terminal reports whether no further steps will execute in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPaused
}

// StepKind selects the evaluation rule applied to a step.
type StepKind string

const (
	KindAction    StepKind = "action"
	KindCondition StepKind = "condition"
	KindLoop      StepKind = "loop"
	KindParallel  StepKind = "parallel"
	KindDelay     StepKind = "delay"
	KindTransform StepKind = "transform"
)

// Known reports whether k is one of the built-in kinds. Unknown kinds are
// still accepted and evaluated like KindAction.
func (k StepKind) Known() bool {
	switch k {
	case KindAction, KindCondition, KindLoop, KindParallel, KindDelay, KindTransform:
		return true
	}
	return false
}

// ErrorPolicy decides what happens when a step fails.
//
// Besides the built-in values, any other value is treated as the ID of a
// handler step to jump to. If no such step exists the run fails as with
// PolicyStop.
type ErrorPolicy string

const (
	PolicyStop     ErrorPolicy = "stop"
	PolicyContinue ErrorPolicy = "continue"
	PolicyRetry    ErrorPolicy = "retry"
)

// HandlerStep returns the step ID named by p, if p is not a built-in policy.
func (p ErrorPolicy) HandlerStep() (string, bool) {
	switch p {
	case "", PolicyStop, PolicyContinue, PolicyRetry:
		return "", false
	}
	return string(p), true
}

// StepFunc is the pluggable behaviour attached to a step. It receives the
// run's shared Context and returns the step result.
//
// What a StepFunc is expected to read depends on the step kind: action steps
// usually read arbitrary keys, loop bodies read wc.Item(), and transform steps
// read wc.LastResult(). See ItemFunc and TransformFunc for typed adapters.
type StepFunc func(ctx context.Context, wc *Context) (any, error)

// Step is a single node of a workflow graph. Steps are values and are never
// mutated after being added to a workflow.
type Step struct {
	ID      string
	Name    string
	Kind    StepKind
	Handler StepFunc
	Config  map[string]any
	Next    string
	OnError ErrorPolicy
}

// ContextKey is the key under which the step's result is stored in the run
// context: "$" followed by the name with spaces replaced by underscores.
func (s Step) ContextKey() string {
	return "$" + strings.ReplaceAll(s.Name, " ", "_")
}

// ConfigValue returns Config[key], if present.
func (s Step) ConfigValue(key string) (any, bool) {
	if s.Config == nil {
		return nil, false
	}
	v, ok := s.Config[key]
	return v, ok
}

// ConfigString returns Config[key] when it holds a string.
func (s Step) ConfigString(key string) string {
	v, _ := s.ConfigValue(key)
	str, _ := v.(string)
	return str
}

// Summary returns the listing view of the step.
func (s Step) Summary() StepSummary {
	return StepSummary{
		ID:         s.ID,
		Name:       s.Name,
		Kind:       s.Kind,
		Next:       s.Next,
		OnError:    s.OnError,
		HasHandler: s.Handler != nil,
	}
}

// StepSpec is the input to Engine.AddStep. Zero-valued fields take defaults:
// a generated ID, the name "Step N", KindAction and PolicyStop.
type StepSpec struct {
	ID      string
	Name    string
	Kind    StepKind
	Handler StepFunc
	Config  map[string]any
	Next    string
	OnError ErrorPolicy
}

// StepSummary describes a step without its handler or configuration.
type StepSummary struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       StepKind    `json:"type"`
	Next       string      `json:"next,omitempty"`
	OnError    ErrorPolicy `json:"onError"`
	HasHandler bool        `json:"hasHandler"`
}

// CreateOptions controls Engine.Create.
type CreateOptions struct {
	// Context seeds the workflow context. It is copied; later changes to the
	// map do not affect the workflow.
	Context map[string]any
}

// WorkflowSummary is the listing view of a workflow.
type WorkflowSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Steps     int       `json:"steps"`
	EntryStep string    `json:"entryStep,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkflowStatus reports the state of a workflow and its most recent run.
type WorkflowStatus struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	CurrentStep   string    `json:"currentStep,omitempty"`
	StepsTotal    int       `json:"stepsTotal"`
	StepsExecuted int       `json:"stepsExecuted"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	StartedAt     time.Time `json:"startedAt,omitzero"`
	CompletedAt   time.Time `json:"completedAt,omitzero"`
}

// RecordStatus is the outcome of one step attempt.
type RecordStatus string

const (
	RecordCompleted RecordStatus = "completed"
	RecordFailed    RecordStatus = "failed"
)

// ExecutionRecord is one entry of a run's history. Records are appended once
// per step attempt and never modified.
type ExecutionRecord struct {
	StepID    string        `json:"stepId"`
	StepName  string        `json:"stepName"`
	Status    RecordStatus  `json:"status"`
	Result    any           `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// RunInfo identifies a run. It is handed to observers.
type RunInfo struct {
	RunID        string
	WorkflowID   string
	WorkflowName string
	Status       Status
	StartedAt    time.Time
}

// RunResult is the summary returned by Engine.Run.
//
// Step failures never surface as the error returned by Run; they are reported
// here through Status, Error and Err.
type RunResult struct {
	WorkflowID string `json:"id"`
	RunID      string `json:"runId"`
	Status     Status `json:"status"`
	// StepsExecuted counts history entries other than condition
	// evaluations.
	StepsExecuted int           `json:"stepsExecuted"`
	Duration      time.Duration `json:"duration"`
	Result        any           `json:"result"`
	Error         string        `json:"error,omitempty"`
	Err           error         `json:"-"`
}

// RunSummary is the persisted form of a finished or in-flight run.
type RunSummary struct {
	RunID         string    `json:"runId" bson:"_id"`
	WorkflowID    string    `json:"workflowId" bson:"workflow_id"`
	WorkflowName  string    `json:"workflowName" bson:"workflow_name"`
	Status        Status    `json:"status" bson:"status"`
	StepsExecuted int       `json:"stepsExecuted" bson:"steps_executed"`
	Error         string    `json:"error,omitempty" bson:"error"`
	StartedAt     time.Time `json:"startedAt" bson:"started_at"`
	CompletedAt   time.Time `json:"completedAt,omitzero" bson:"completed_at"`
}

// ConditionResult is the result of a condition step.
type ConditionResult struct {
	Matched bool   `json:"matched"`
	Next    string `json:"next,omitempty"`
}

// ParallelResult is one entry of a parallel step's result, in the order the
// children were listed.
type ParallelResult struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
