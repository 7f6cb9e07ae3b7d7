package stepgraph

import (
	"errors"
	"fmt"
	"maps"
)

// Definition is a complete workflow graph that can be imported into an
// Engine in one call. It is produced by FlowBuilder or decoded from YAML.
type Definition struct {
	Name    string           `yaml:"name"`
	Context map[string]any   `yaml:"context,omitempty"`
	Entry   string           `yaml:"entry,omitempty"`
	Steps   []StepDefinition `yaml:"steps"`
}

// StepDefinition describes one step of a Definition.
//
// Fn takes precedence over Handler. Handler names a function in the
// HandlerCatalog passed to Import.
type StepDefinition struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name,omitempty"`
	Kind    StepKind       `yaml:"type,omitempty"`
	Handler string         `yaml:"handler,omitempty"`
	Fn      StepFunc       `yaml:"-"`
	Config  map[string]any `yaml:"config,omitempty"`
	Next    string         `yaml:"next,omitempty"`
	OnError ErrorPolicy    `yaml:"onError,omitempty"`
}

// HandlerCatalog maps handler names used in definitions to step functions.
type HandlerCatalog map[string]StepFunc

// Validate checks the definition for problems that would make Import fail.
// Step references are not checked here; use Engine.Validate after Import.
func (d Definition) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, fmt.Errorf("%w: workflow name", ErrMissingArgument))
	}
	if len(d.Steps) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEmptyWorkflow, d.Name))
	}
	seen := make(map[string]bool, len(d.Steps))
	for i, s := range d.Steps {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("%w: id of step %d", ErrMissingArgument, i+1))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID))
		}
		seen[s.ID] = true
	}
	if d.Entry != "" && !seen[d.Entry] {
		errs = append(errs, fmt.Errorf("%w: entry %q", ErrStepNotFound, d.Entry))
	}
	return errors.Join(errs...)
}

// resolve turns the step definition into a StepSpec, looking up its handler
// in catalog. An empty name defaults to the ID.
func (s StepDefinition) resolve(catalog HandlerCatalog) (StepSpec, error) {
	spec := StepSpec{
		ID:      s.ID,
		Name:    s.Name,
		Kind:    s.Kind,
		Handler: s.Fn,
		Config:  maps.Clone(s.Config),
		Next:    s.Next,
		OnError: s.OnError,
	}
	if spec.Name == "" {
		spec.Name = s.ID
	}
	if spec.Handler == nil && s.Handler != "" {
		fn, ok := catalog[s.Handler]
		if !ok || fn == nil {
			return StepSpec{}, fmt.Errorf("%w: step %q: unknown handler %q", ErrConfiguration, s.ID, s.Handler)
		}
		spec.Handler = fn
	}
	return spec, nil
}

// Import creates a workflow on eng from def and returns its summary. Every
// handler is resolved before anything is created; if a later step fails,
// the partially created workflow is destroyed.
func Import(eng Engine, def Definition, catalog HandlerCatalog) (WorkflowSummary, error) {
	if err := def.Validate(); err != nil {
		return WorkflowSummary{}, err
	}
	specs := make([]StepSpec, 0, len(def.Steps))
	for _, s := range def.Steps {
		spec, err := s.resolve(catalog)
		if err != nil {
			return WorkflowSummary{}, err
		}
		specs = append(specs, spec)
	}

	wf, err := eng.Create(def.Name, CreateOptions{Context: def.Context})
	if err != nil {
		return WorkflowSummary{}, err
	}
	fail := func(err error) (WorkflowSummary, error) {
		eng.Destroy(wf.ID)
		return WorkflowSummary{}, err
	}

	for _, spec := range specs {
		if _, err := eng.AddStep(wf.ID, spec); err != nil {
			return fail(err)
		}
	}
	if def.Entry != "" {
		if err := eng.SetEntry(wf.ID, def.Entry); err != nil {
			return fail(err)
		}
	}

	status, err := eng.GetStatus(wf.ID)
	if err != nil {
		return fail(err)
	}
	wf.Steps = status.StepsTotal
	wf.EntryStep = def.Entry
	if wf.EntryStep == "" {
		wf.EntryStep = specs[0].ID
	}
	return wf, nil
}
