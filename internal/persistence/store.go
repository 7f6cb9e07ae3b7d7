package persistence

import (
	"context"

	"github.com/petrijr/stepgraph/pkg/api"
)

// HistoryStore is an append-only audit store for runs and their execution
// records. Workflow definitions are never persisted; only what happened while
// running them.
//
// The engine calls SaveRun when a run starts and again when it ends, and
// AppendRecord once per step attempt. Implementations must be safe for
// concurrent use.
type HistoryStore interface {
	// SaveRun inserts or replaces the summary of a run.
	SaveRun(ctx context.Context, run api.RunSummary) error
	// AppendRecord appends one execution record to a run's history.
	AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error
	// ListRecords returns the records of a run in append order.
	ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error)
	// ListRuns returns the runs of a workflow ordered by start time.
	ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error)
}

// NoopHistoryStore discards everything.
type NoopHistoryStore struct{}

var _ HistoryStore = NoopHistoryStore{}

func (NoopHistoryStore) SaveRun(ctx context.Context, run api.RunSummary) error { return nil }
func (NoopHistoryStore) AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error {
	return nil
}
func (NoopHistoryStore) ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error) {
	return nil, nil
}
func (NoopHistoryStore) ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	return nil, nil
}
