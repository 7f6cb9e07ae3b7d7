package persistence

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/petrijr/stepgraph/pkg/api"
)

// HistoryStoreSuite is the behaviour every HistoryStore backend must share.
type HistoryStoreSuite struct {
	suite.Suite
	newStore func() HistoryStore
	store    HistoryStore
	ctx      context.Context
}

func (s *HistoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

var suiteEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func (s *HistoryStoreSuite) TestSaveRunUpserts() {
	run := api.RunSummary{
		RunID:        "run-1",
		WorkflowID:   "wf-1",
		WorkflowName: "orders",
		Status:       api.StatusRunning,
		StartedAt:    suiteEpoch,
	}
	s.Require().NoError(s.store.SaveRun(s.ctx, run))

	run.Status = api.StatusCompleted
	run.StepsExecuted = 3
	run.CompletedAt = suiteEpoch.Add(2 * time.Second)
	s.Require().NoError(s.store.SaveRun(s.ctx, run))

	runs, err := s.store.ListRuns(s.ctx, "wf-1")
	s.Require().NoError(err)
	s.Require().Len(runs, 1)

	got := runs[0]
	s.Equal("run-1", got.RunID)
	s.Equal("orders", got.WorkflowName)
	s.Equal(api.StatusCompleted, got.Status)
	s.Equal(3, got.StepsExecuted)
	s.True(got.StartedAt.Equal(suiteEpoch), "started_at = %v", got.StartedAt)
	s.True(got.CompletedAt.Equal(run.CompletedAt), "completed_at = %v", got.CompletedAt)
}

func (s *HistoryStoreSuite) TestListRunsFiltersAndOrders() {
	for i, id := range []string{"b", "a", "c"} {
		s.Require().NoError(s.store.SaveRun(s.ctx, api.RunSummary{
			RunID:      id,
			WorkflowID: "wf-1",
			Status:     api.StatusCompleted,
			StartedAt:  suiteEpoch.Add(time.Duration(i) * time.Second),
		}))
	}
	s.Require().NoError(s.store.SaveRun(s.ctx, api.RunSummary{
		RunID:      "other",
		WorkflowID: "wf-2",
		Status:     api.StatusFailed,
		Error:      "boom",
		StartedAt:  suiteEpoch,
	}))

	runs, err := s.store.ListRuns(s.ctx, "wf-1")
	s.Require().NoError(err)
	s.Require().Len(runs, 3)
	s.Equal("b", runs[0].RunID)
	s.Equal("a", runs[1].RunID)
	s.Equal("c", runs[2].RunID)

	other, err := s.store.ListRuns(s.ctx, "wf-2")
	s.Require().NoError(err)
	s.Require().Len(other, 1)
	s.Equal("boom", other[0].Error)
	s.True(other[0].CompletedAt.IsZero())

	none, err := s.store.ListRuns(s.ctx, "missing")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *HistoryStoreSuite) TestRecordsKeepAppendOrder() {
	recs := []api.ExecutionRecord{
		{
			StepID:    "s1",
			StepName:  "fetch",
			Status:    api.RecordCompleted,
			Result:    map[string]any{"count": float64(2), "tags": []any{"x", "y"}},
			Timestamp: suiteEpoch,
			Duration:  15 * time.Millisecond,
		},
		{
			StepID:    "s2",
			StepName:  "check",
			Status:    api.RecordFailed,
			Error:     "upstream unavailable",
			Timestamp: suiteEpoch.Add(time.Second),
		},
		{
			StepID:    "s3",
			StepName:  "notify",
			Status:    api.RecordCompleted,
			Result:    "sent",
			Timestamp: suiteEpoch.Add(2 * time.Second),
		},
	}
	for _, rec := range recs {
		s.Require().NoError(s.store.AppendRecord(s.ctx, "run-1", rec))
	}
	s.Require().NoError(s.store.AppendRecord(s.ctx, "run-2", recs[0]))

	got, err := s.store.ListRecords(s.ctx, "run-1")
	s.Require().NoError(err)
	s.Require().Len(got, 3)

	s.Equal("s1", got[0].StepID)
	s.Equal("fetch", got[0].StepName)
	s.Equal(map[string]any{"count": float64(2), "tags": []any{"x", "y"}}, got[0].Result)
	s.Equal(15*time.Millisecond, got[0].Duration)
	s.True(got[0].Timestamp.Equal(suiteEpoch))

	s.Equal(api.RecordFailed, got[1].Status)
	s.Equal("upstream unavailable", got[1].Error)
	s.Nil(got[1].Result)

	s.Equal("sent", got[2].Result)

	empty, err := s.store.ListRecords(s.ctx, "never-ran")
	s.Require().NoError(err)
	s.Empty(empty)
}
