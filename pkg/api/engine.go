package api

import "context"

// Engine stores workflow graphs and runs them.
//
// Management and query methods fail with errors wrapping ErrConfiguration
// (ErrWorkflowNotFound, ErrStepNotFound, ...). Run only returns an error for
// configuration problems; step failures are reported in the RunResult.
type Engine interface {
	// Create registers an empty workflow and returns its summary.
	Create(name string, opts CreateOptions) (WorkflowSummary, error)

	// AddStep adds a step to the workflow. The first step added becomes the
	// entry step unless SetEntry was called before.
	AddStep(workflowID string, spec StepSpec) (StepSummary, error)

	// SetEntry makes stepID the first step executed by Run.
	SetEntry(workflowID, stepID string) error

	// Link sets the default successor of fromID. toID is not validated.
	Link(workflowID, fromID, toID string) error

	// RemoveStep removes a step. It reports whether the step existed.
	RemoveStep(workflowID, stepID string) (bool, error)

	// ListSteps returns the workflow's steps in insertion order.
	ListSteps(workflowID string) ([]StepSummary, error)

	// Validate checks that the entry step and every step reference
	// (next, condition branches, error handlers, parallel children) resolve.
	Validate(workflowID string) error

	// Run executes the workflow from its entry step until no successor
	// remains, a step fails the run, or the run is paused. Unless configured
	// otherwise a run executes at most 10000 steps and then fails with
	// ErrTransitionLimit.
	Run(ctx context.Context, workflowID string, input map[string]any) (*RunResult, error)

	// Pause asks every active run of the workflow to stop after its current
	// step. It is a no-op when nothing is running.
	Pause(workflowID string) (Status, error)

	// GetStatus reports the workflow and its most recent run.
	GetStatus(workflowID string) (WorkflowStatus, error)

	// GetContext returns a snapshot of the most recent run's context, or of
	// the seed context if the workflow never ran.
	GetContext(workflowID string) (map[string]any, error)

	// GetContextValue returns a single context value.
	GetContextValue(workflowID, key string) (any, bool, error)

	// SetContext writes a value into the seed context and into the context
	// of every active run.
	SetContext(workflowID, key string, value any) (bool, error)

	// GetHistory returns the records of the most recent run.
	GetHistory(workflowID string) ([]ExecutionRecord, error)

	// RunHistory returns the persisted runs of the workflow, oldest first.
	RunHistory(ctx context.Context, workflowID string) ([]RunSummary, error)

	// Clone copies a workflow's steps and entry into a new idle workflow.
	// An empty newName yields "<name> (copy)".
	Clone(workflowID, newName string) (WorkflowSummary, error)

	// Destroy removes a workflow. It reports whether it existed.
	Destroy(workflowID string) bool

	// List returns all workflows ordered by creation time.
	List() []WorkflowSummary
}
