package api

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the base of every error caused by a malformed workflow
// or a bad management call. Engine methods return such errors synchronously;
// use errors.Is(err, ErrConfiguration) to detect the whole class.
var ErrConfiguration = errors.New("configuration error")

var (
	ErrWorkflowNotFound  = fmt.Errorf("%w: workflow not found", ErrConfiguration)
	ErrStepNotFound      = fmt.Errorf("%w: step not found", ErrConfiguration)
	ErrEmptyWorkflow     = fmt.Errorf("%w: workflow has no steps", ErrConfiguration)
	ErrNoEntryStep       = fmt.Errorf("%w: workflow has no entry step", ErrConfiguration)
	ErrMissingArgument   = fmt.Errorf("%w: missing required argument", ErrConfiguration)
	ErrDuplicateStep     = fmt.Errorf("%w: duplicate step id", ErrConfiguration)
	ErrDanglingReference = fmt.Errorf("%w: reference to unknown step", ErrConfiguration)
)

// ErrUnresolvedStep is reported when a run reaches a step ID that is not part
// of the workflow, for example through a dangling link. It is a run failure,
// not a configuration error.
var ErrUnresolvedStep = errors.New("step not found")

// ErrTransitionLimit is reported when a run exceeds the configured number of
// step transitions.
var ErrTransitionLimit = errors.New("step transition limit exceeded")

// StepError is a failure raised while evaluating a step.
type StepError struct {
	StepID   string
	StepName string
	Kind     StepKind
	Err      error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// RunAbortedError is the terminal error of a failed run. It is reported in
// RunResult.Err and never returned as the error of Engine.Run.
type RunAbortedError struct {
	WorkflowID string
	RunID      string
	StepID     string
	Err        error
}

func (e *RunAbortedError) Error() string {
	return e.Err.Error()
}

func (e *RunAbortedError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking step handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step handler panicked: %v", e.Value)
}
