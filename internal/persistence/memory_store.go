package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/petrijr/stepgraph/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe HistoryStore backed by maps.
// Records are kept as given, without encoding.
type InMemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]api.RunSummary
	order   []string
	records map[string][]api.ExecutionRecord
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs:    make(map[string]api.RunSummary),
		records: make(map[string][]api.ExecutionRecord),
	}
}

// Ensure InMemoryStore implements the interface.
var _ HistoryStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveRun(ctx context.Context, run api.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.RunID]; !ok {
		s.order = append(s.order, run.RunID)
	}
	s.runs[run.RunID] = run
	return nil
}

func (s *InMemoryStore) AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[runID] = append(s.records[runID], rec)
	return nil
}

func (s *InMemoryStore) ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.records[runID]), nil
}

func (s *InMemoryStore) ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.RunSummary
	for _, id := range s.order {
		run := s.runs[id]
		if run.WorkflowID == workflowID {
			out = append(out, run)
		}
	}
	return out, nil
}
