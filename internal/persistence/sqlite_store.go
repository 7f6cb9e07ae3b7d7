package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/stepgraph/pkg/api"
)

// SQLiteHistoryStore is a HistoryStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteHistoryStore struct {
	db *sql.DB
}

// Ensure SQLiteHistoryStore implements HistoryStore.
var _ HistoryStore = (*SQLiteHistoryStore)(nil)

// NewSQLiteHistoryStore initializes the required schema in the given
// database and returns a new SQLiteHistoryStore.
func NewSQLiteHistoryStore(db *sql.DB) (*SQLiteHistoryStore, error) {
	s := &SQLiteHistoryStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistoryStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			workflow_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			steps_executed INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			completed_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_workflow_id ON runs(workflow_id, started_at);
		CREATE TABLE IF NOT EXISTS run_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			step_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			result BLOB,
			error TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_run_records_run_id ON run_records(run_id, id);
	`)
	return err
}

func (s *SQLiteHistoryStore) SaveRun(ctx context.Context, run api.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_id, workflow_name, status, steps_executed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			steps_executed = excluded.steps_executed,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		run.RunID,
		run.WorkflowID,
		run.WorkflowName,
		string(run.Status),
		run.StepsExecuted,
		run.Error,
		run.StartedAt.UnixNano(),
		unixNanoOrZero(run.CompletedAt),
	)
	return err
}

func (s *SQLiteHistoryStore) AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_records (run_id, step_id, step_name, status, result, error, at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		row.StepID,
		row.StepName,
		row.Status,
		[]byte(row.Result),
		row.Error,
		row.AtNanos,
		row.DurationNs,
	)
	return err
}

func (s *SQLiteHistoryStore) ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, step_name, status, result, error, at, duration_ns
		FROM run_records
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.ExecutionRecord
	for rows.Next() {
		var row recordRow
		var result []byte
		if err := rows.Scan(&row.StepID, &row.StepName, &row.Status, &result, &row.Error, &row.AtNanos, &row.DurationNs); err != nil {
			return nil, err
		}
		row.Result = result
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteHistoryStore) ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, workflow_id, workflow_name, status, steps_executed, error, started_at, completed_at
		FROM runs
		WHERE workflow_id = ?
		ORDER BY started_at ASC, run_id ASC`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunSummary
	for rows.Next() {
		var (
			run              api.RunSummary
			status           string
			startN, complete int64
		)
		if err := rows.Scan(&run.RunID, &run.WorkflowID, &run.WorkflowName, &status, &run.StepsExecuted, &run.Error, &startN, &complete); err != nil {
			return nil, err
		}
		run.Status = api.Status(status)
		run.StartedAt = time.Unix(0, startN)
		run.CompletedAt = timeOrZero(complete)
		out = append(out, run)
	}
	return out, rows.Err()
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func timeOrZero(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
