package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/stepgraph/internal/persistence"
	"github.com/petrijr/stepgraph/pkg/api"
)

// engineImpl is an in-process engine. Definitions live in memory; runs
// execute synchronously on the caller's goroutine and are mirrored to the
// configured history store.
type engineImpl struct {
	cfg      Config
	registry *workflowRegistry
	history  persistence.HistoryStore
	observer api.Observer
	logger   *slog.Logger
}

var _ api.Engine = (*engineImpl)(nil)

// NewEngine creates a new Engine using the given configuration.
func NewEngine(cfg Config) api.Engine {
	cfg = cfg.normalize()
	return &engineImpl{
		cfg:      cfg,
		registry: newWorkflowRegistry(),
		history:  cfg.History,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
}

// NewInMemoryEngine returns an Engine that keeps run history in memory.
func NewInMemoryEngine() api.Engine {
	return NewEngine(Config{History: persistence.NewInMemoryStore()})
}

// NewSQLiteEngine returns an Engine that records run history in SQLite.
func NewSQLiteEngine(db *sql.DB, cfg Config) (api.Engine, error) {
	store, err := persistence.NewSQLiteHistoryStore(db)
	if err != nil {
		return nil, err
	}
	cfg.History = store
	return NewEngine(cfg), nil
}

// NewPostgresEngine returns an Engine that records run history in Postgres.
// Workflow definitions remain in memory.
func NewPostgresEngine(db *sql.DB, cfg Config) (api.Engine, error) {
	store, err := persistence.NewPostgresHistoryStore(db)
	if err != nil {
		return nil, err
	}
	cfg.History = store
	return NewEngine(cfg), nil
}

// NewRedisEngine returns an Engine that records run history in Redis under
// the "stepgraph:" key prefix.
func NewRedisEngine(client redis.UniversalClient, cfg Config) api.Engine {
	cfg.History = persistence.NewRedisHistoryStore(client, "stepgraph:")
	return NewEngine(cfg)
}

// NewMongoEngine returns an Engine that records run history in MongoDB,
// using the default "stepgraph" database.
func NewMongoEngine(client *mongo.Client, cfg Config) api.Engine {
	cfg.History = persistence.NewMongoHistoryStore(client, "")
	return NewEngine(cfg)
}

func (e *engineImpl) Create(name string, opts api.CreateOptions) (api.WorkflowSummary, error) {
	if name == "" {
		return api.WorkflowSummary{}, fmt.Errorf("%w: workflow name", api.ErrMissingArgument)
	}
	d := newDefinition(e.cfg.NewID(), name, opts.Context, e.cfg.Clock())

	e.registry.mu.Lock()
	defer e.registry.mu.Unlock()
	e.registry.add(d)
	return d.summary(), nil
}

func (e *engineImpl) AddStep(workflowID string, spec api.StepSpec) (api.StepSummary, error) {
	var out api.StepSummary
	err := e.registry.write(workflowID, func(d *definition) error {
		step := api.Step{
			ID:      spec.ID,
			Name:    spec.Name,
			Kind:    spec.Kind,
			Handler: spec.Handler,
			Config:  maps.Clone(spec.Config),
			Next:    spec.Next,
			OnError: spec.OnError,
		}
		if step.ID == "" {
			step.ID = e.cfg.NewID()
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("Step %d", len(d.order)+1)
		}
		if step.Kind == "" {
			step.Kind = api.KindAction
		}
		if step.OnError == "" {
			step.OnError = api.PolicyStop
		}
		if err := d.addStep(step); err != nil {
			return err
		}
		out = step.Summary()
		return nil
	})
	return out, err
}

func (e *engineImpl) SetEntry(workflowID, stepID string) error {
	return e.registry.write(workflowID, func(d *definition) error {
		if _, ok := d.steps[stepID]; !ok {
			return fmt.Errorf("%w: %s", api.ErrStepNotFound, stepID)
		}
		d.entry = stepID
		return nil
	})
}

func (e *engineImpl) Link(workflowID, fromID, toID string) error {
	return e.registry.write(workflowID, func(d *definition) error {
		step, ok := d.steps[fromID]
		if !ok {
			return fmt.Errorf("%w: %s", api.ErrStepNotFound, fromID)
		}
		step.Next = toID
		d.steps[fromID] = step
		return nil
	})
}

func (e *engineImpl) RemoveStep(workflowID, stepID string) (bool, error) {
	var removed bool
	err := e.registry.write(workflowID, func(d *definition) error {
		removed = d.removeStep(stepID)
		return nil
	})
	return removed, err
}

func (e *engineImpl) ListSteps(workflowID string) ([]api.StepSummary, error) {
	var out []api.StepSummary
	err := e.registry.read(workflowID, func(d *definition) error {
		out = make([]api.StepSummary, 0, len(d.order))
		for _, id := range d.order {
			out = append(out, d.steps[id].Summary())
		}
		return nil
	})
	return out, err
}

func (e *engineImpl) Pause(workflowID string) (api.Status, error) {
	var status api.Status
	err := e.registry.read(workflowID, func(d *definition) error {
		paused := false
		for _, rs := range d.active {
			if rs.pause() {
				paused = true
			}
		}
		if paused {
			status = api.StatusPaused
		} else {
			status = d.status()
		}
		return nil
	})
	return status, err
}

func (e *engineImpl) GetStatus(workflowID string) (api.WorkflowStatus, error) {
	var out api.WorkflowStatus
	err := e.registry.read(workflowID, func(d *definition) error {
		out = api.WorkflowStatus{
			ID:         d.id,
			Name:       d.name,
			Status:     api.StatusIdle,
			StepsTotal: len(d.steps),
			CreatedAt:  d.createdAt,
		}
		if d.latest == nil {
			return nil
		}
		snap := d.latest.snapshot()
		out.Status = snap.status
		out.CurrentStep = snap.current
		out.StepsExecuted = snap.executed
		out.StartedAt = snap.startedAt
		out.CompletedAt = snap.completedAt
		if snap.err != nil {
			out.Error = snap.err.Error()
		}
		return nil
	})
	return out, err
}

// runContext returns the context of the latest run, or a context built from
// the seed when the workflow never ran. Called with the registry lock held.
func (d *definition) runContext() *api.Context {
	if d.latest != nil {
		return d.latest.wc
	}
	return api.NewContext(d.seed, nil)
}

func (e *engineImpl) GetContext(workflowID string) (map[string]any, error) {
	var out map[string]any
	err := e.registry.read(workflowID, func(d *definition) error {
		out = d.runContext().Snapshot()
		return nil
	})
	return out, err
}

func (e *engineImpl) GetContextValue(workflowID, key string) (any, bool, error) {
	var (
		v  any
		ok bool
	)
	err := e.registry.read(workflowID, func(d *definition) error {
		v, ok = d.runContext().Get(key)
		return nil
	})
	return v, ok, err
}

func (e *engineImpl) SetContext(workflowID, key string, value any) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("%w: context key", api.ErrMissingArgument)
	}
	// Reserved keys only accept values of their type. Check once against a
	// scratch context so a rejected write leaves every context untouched.
	if err := api.NewContext(nil, nil).Set(key, value); err != nil {
		return false, fmt.Errorf("%w: %w", api.ErrConfiguration, err)
	}
	err := e.registry.write(workflowID, func(d *definition) error {
		d.seed[key] = value
		for _, rs := range d.active {
			_ = rs.wc.Set(key, value)
		}
		// A finished latest run still backs GetContext.
		if d.latest != nil {
			_ = d.latest.wc.Set(key, value)
		}
		return nil
	})
	return err == nil, err
}

func (e *engineImpl) GetHistory(workflowID string) ([]api.ExecutionRecord, error) {
	out := []api.ExecutionRecord{}
	err := e.registry.read(workflowID, func(d *definition) error {
		if d.latest != nil {
			if h := d.latest.snapshot().history; h != nil {
				out = h
			}
		}
		return nil
	})
	return out, err
}

func (e *engineImpl) RunHistory(ctx context.Context, workflowID string) ([]api.RunSummary, error) {
	if err := e.registry.read(workflowID, func(*definition) error { return nil }); err != nil {
		return nil, err
	}
	return e.history.ListRuns(ctx, workflowID)
}

func (e *engineImpl) Clone(workflowID, newName string) (api.WorkflowSummary, error) {
	e.registry.mu.Lock()
	defer e.registry.mu.Unlock()

	src, err := e.registry.lookup(workflowID)
	if err != nil {
		return api.WorkflowSummary{}, err
	}
	if newName == "" {
		newName = src.name + " (copy)"
	}
	c := src.clone(e.cfg.NewID(), newName, e.cfg.Clock())
	e.registry.add(c)
	return c.summary(), nil
}

func (e *engineImpl) Destroy(workflowID string) bool {
	e.registry.mu.Lock()
	defer e.registry.mu.Unlock()
	return e.registry.remove(workflowID)
}

func (e *engineImpl) List() []api.WorkflowSummary {
	return e.registry.list()
}
