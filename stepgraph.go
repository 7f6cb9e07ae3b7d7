package stepgraph

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/stepgraph/internal/engine"
	"github.com/petrijr/stepgraph/internal/persistence"
	"github.com/petrijr/stepgraph/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	Context              = api.Context
	Step                 = api.Step
	StepSpec             = api.StepSpec
	StepFunc             = api.StepFunc
	StepKind             = api.StepKind
	StepSummary          = api.StepSummary
	ErrorPolicy          = api.ErrorPolicy
	Status               = api.Status
	CreateOptions        = api.CreateOptions
	WorkflowSummary      = api.WorkflowSummary
	WorkflowStatus       = api.WorkflowStatus
	RunResult            = api.RunResult
	RunSummary           = api.RunSummary
	ExecutionRecord      = api.ExecutionRecord
	ConditionResult      = api.ConditionResult
	ParallelResult       = api.ParallelResult
	StepError            = api.StepError
	RunAbortedError      = api.RunAbortedError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	// HistoryStore persists run summaries and execution records.
	HistoryStore = persistence.HistoryStore
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	Static               = api.Static
	ItemFunc             = api.ItemFunc
	TransformFunc        = api.TransformFunc
	StepFromContext      = api.StepFromContext
)

// Re-export error classes for errors.Is checks.

var (
	ErrConfiguration     = api.ErrConfiguration
	ErrWorkflowNotFound  = api.ErrWorkflowNotFound
	ErrStepNotFound      = api.ErrStepNotFound
	ErrEmptyWorkflow     = api.ErrEmptyWorkflow
	ErrNoEntryStep       = api.ErrNoEntryStep
	ErrMissingArgument   = api.ErrMissingArgument
	ErrDuplicateStep     = api.ErrDuplicateStep
	ErrDanglingReference = api.ErrDanglingReference
	ErrUnresolvedStep    = api.ErrUnresolvedStep
	ErrTransitionLimit   = api.ErrTransitionLimit
)

const (
	StatusIdle      = api.StatusIdle
	StatusRunning   = api.StatusRunning
	StatusCompleted = api.StatusCompleted
	StatusFailed    = api.StatusFailed
	StatusPaused    = api.StatusPaused

	KindAction    = api.KindAction
	KindCondition = api.KindCondition
	KindLoop      = api.KindLoop
	KindParallel  = api.KindParallel
	KindDelay     = api.KindDelay
	KindTransform = api.KindTransform

	PolicyStop     = api.PolicyStop
	PolicyContinue = api.PolicyContinue
	PolicyRetry    = api.PolicyRetry
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewEngine returns an Engine configured by opts. Without WithHistoryStore,
// run history is not persisted.
func NewEngine(opts ...Option) Engine {
	return engine.NewEngine(buildConfig(opts))
}

// NewInMemoryEngine returns an Engine that keeps run history in memory.
func NewInMemoryEngine(opts ...Option) Engine {
	cfg := buildConfig(opts)
	if cfg.History == nil {
		cfg.History = persistence.NewInMemoryStore()
	}
	return engine.NewEngine(cfg)
}

// NewSQLiteEngine returns an Engine that records run history in a SQLite
// database. Workflow definitions are kept in memory.
func NewSQLiteEngine(db *sql.DB, opts ...Option) (Engine, error) {
	return engine.NewSQLiteEngine(db, buildConfig(opts))
}

// NewPostgresEngine returns an Engine that records run history in PostgreSQL.
func NewPostgresEngine(db *sql.DB, opts ...Option) (Engine, error) {
	return engine.NewPostgresEngine(db, buildConfig(opts))
}

// NewRedisEngine returns an Engine that records run history in Redis.
func NewRedisEngine(client redis.UniversalClient, opts ...Option) Engine {
	return engine.NewRedisEngine(client, buildConfig(opts))
}

// NewMongoEngine returns an Engine that records run history in MongoDB.
func NewMongoEngine(client *mongo.Client, opts ...Option) Engine {
	return engine.NewMongoEngine(client, buildConfig(opts))
}
