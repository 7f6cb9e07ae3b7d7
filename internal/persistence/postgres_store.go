package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/stepgraph/pkg/api"
)

// PostgresHistoryStore is a HistoryStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresHistoryStore struct {
	db *sql.DB
}

// Ensure PostgresHistoryStore implements HistoryStore.
var _ HistoryStore = (*PostgresHistoryStore)(nil)

// NewPostgresHistoryStore initializes the required schema in the given
// database and returns a new PostgresHistoryStore.
func NewPostgresHistoryStore(db *sql.DB) (*PostgresHistoryStore, error) {
	s := &PostgresHistoryStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresHistoryStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			workflow_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			steps_executed INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_workflow_id ON runs(workflow_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS run_records (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			step_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			result BYTEA,
			error TEXT NOT NULL DEFAULT '',
			at BIGINT NOT NULL,
			duration_ns BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_records_run_id ON run_records(run_id, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresHistoryStore) SaveRun(ctx context.Context, run api.RunSummary) error {
	var completed sql.NullTime
	if !run.CompletedAt.IsZero() {
		completed = sql.NullTime{Time: run.CompletedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_id, workflow_name, status, steps_executed, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			steps_executed = EXCLUDED.steps_executed,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`,
		run.RunID,
		run.WorkflowID,
		run.WorkflowName,
		string(run.Status),
		run.StepsExecuted,
		run.Error,
		run.StartedAt,
		completed,
	)
	return err
}

func (s *PostgresHistoryStore) AppendRecord(ctx context.Context, runID string, rec api.ExecutionRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_records (run_id, step_id, step_name, status, result, error, at, duration_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
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

func (s *PostgresHistoryStore) ListRecords(ctx context.Context, runID string) ([]api.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, step_name, status, result, error, at, duration_ns
		FROM run_records
		WHERE run_id = $1
		ORDER BY id ASC
	`, runID)
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

func (s *PostgresHistoryStore) ListRuns(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, workflow_id, workflow_name, status, steps_executed, error, started_at, completed_at
		FROM runs
		WHERE workflow_id = $1
		ORDER BY started_at ASC, run_id ASC
	`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunSummary
	for rows.Next() {
		var (
			run       api.RunSummary
			status    string
			started   time.Time
			completed sql.NullTime
		)
		if err := rows.Scan(&run.RunID, &run.WorkflowID, &run.WorkflowName, &status, &run.StepsExecuted, &run.Error, &started, &completed); err != nil {
			return nil, err
		}
		run.Status = api.Status(status)
		run.StartedAt = started
		if completed.Valid {
			run.CompletedAt = completed.Time
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
