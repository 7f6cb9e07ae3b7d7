package engine

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/petrijr/stepgraph/pkg/api"
)

// definition is a stored workflow graph. Its fields are guarded by the
// owning registry's lock.
type definition struct {
	id        string
	name      string
	steps     map[string]api.Step
	order     []string
	entry     string
	seed      map[string]any
	createdAt time.Time

	// latest is the most recently started run, used for introspection.
	latest *runState
	// active holds runs that have not finished yet, keyed by run ID.
	active map[string]*runState
}

func newDefinition(id, name string, seed map[string]any, createdAt time.Time) *definition {
	s := make(map[string]any, len(seed))
	maps.Copy(s, seed)
	return &definition{
		id:        id,
		name:      name,
		steps:     make(map[string]api.Step),
		seed:      s,
		createdAt: createdAt,
		active:    make(map[string]*runState),
	}
}

func (d *definition) status() api.Status {
	if d.latest == nil {
		return api.StatusIdle
	}
	return d.latest.snapshot().status
}

func (d *definition) summary() api.WorkflowSummary {
	return api.WorkflowSummary{
		ID:        d.id,
		Name:      d.name,
		Status:    d.status(),
		Steps:     len(d.steps),
		EntryStep: d.entry,
		CreatedAt: d.createdAt,
	}
}

func (d *definition) addStep(step api.Step) error {
	if _, exists := d.steps[step.ID]; exists {
		return fmt.Errorf("%w: %s", api.ErrDuplicateStep, step.ID)
	}
	d.steps[step.ID] = step
	d.order = append(d.order, step.ID)
	if d.entry == "" {
		d.entry = step.ID
	}
	return nil
}

func (d *definition) removeStep(id string) bool {
	if _, ok := d.steps[id]; !ok {
		return false
	}
	delete(d.steps, id)
	d.order = slices.DeleteFunc(d.order, func(s string) bool { return s == id })
	if d.entry == id {
		d.entry = ""
		if len(d.order) > 0 {
			d.entry = d.order[0]
		}
	}
	return true
}

// clone copies the step table, order and entry into a new idle definition.
// Steps are values, so copying the map is enough to keep the two
// definitions independent.
func (d *definition) clone(id, name string, createdAt time.Time) *definition {
	c := newDefinition(id, name, nil, createdAt)
	c.steps = maps.Clone(d.steps)
	c.order = slices.Clone(d.order)
	c.entry = d.entry
	return c
}

// plan freezes the parts of the definition a run needs, so later edits do
// not affect runs in flight.
func (d *definition) plan() *runPlan {
	return &runPlan{
		workflowID: d.id,
		name:       d.name,
		steps:      maps.Clone(d.steps),
		order:      slices.Clone(d.order),
		entry:      d.entry,
		seed:       maps.Clone(d.seed),
	}
}

// runPlan is an immutable view of a definition taken when a run starts.
type runPlan struct {
	workflowID string
	name       string
	steps      map[string]api.Step
	order      []string
	entry      string
	seed       map[string]any
}

type workflowRegistry struct {
	mu    sync.RWMutex
	defs  map[string]*definition
	order []string
}

func newWorkflowRegistry() *workflowRegistry {
	return &workflowRegistry{
		defs: make(map[string]*definition),
	}
}

func (r *workflowRegistry) add(d *definition) {
	r.defs[d.id] = d
	r.order = append(r.order, d.id)
}

func (r *workflowRegistry) remove(id string) bool {
	if _, ok := r.defs[id]; !ok {
		return false
	}
	delete(r.defs, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return true
}

// lookup must be called with r.mu held.
func (r *workflowRegistry) lookup(id string) (*definition, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrWorkflowNotFound, id)
	}
	return d, nil
}

// read runs fn with the definition under the read lock.
func (r *workflowRegistry) read(id string, fn func(d *definition) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, err := r.lookup(id)
	if err != nil {
		return err
	}
	return fn(d)
}

// write runs fn with the definition under the write lock.
func (r *workflowRegistry) write(id string, fn func(d *definition) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, err := r.lookup(id)
	if err != nil {
		return err
	}
	return fn(d)
}

func (r *workflowRegistry) list() []api.WorkflowSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.WorkflowSummary, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id].summary())
	}
	return out
}
