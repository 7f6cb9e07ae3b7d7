package api

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// Reserved context keys. They are backed by typed fields on Context and are
// visible under these names in Get and Snapshot.
const (
	KeyLastResult = "$lastResult"
	KeyLastError  = "$lastError"
	KeyItem       = "$item"
	KeyIndex      = "$index"
	KeyInput      = "$input"

	// KeyItems is the default context key a loop step reads its items from.
	KeyItems = "$items"
)

// Context is the key-value state shared by every step of one run.
//
// It is safe for concurrent use. Steps running under a parallel step share
// the same Context; concurrent writes to the same key are last-writer-wins.
type Context struct {
	store *contextStore

	// per-iteration binding set by loop steps
	bound bool
	item  any
	index int
}

type contextStore struct {
	mu     sync.RWMutex
	values map[string]any
	input  map[string]any

	lastResult    any
	hasLastResult bool
	lastError     string
	hasLastError  bool

	item    any
	index   int
	hasItem bool
}

// NewContext builds a run context from a seed map and the run input. Both
// maps are copied and input keys override seed keys. Reserved keys found in
// either map populate the typed fields; values of the wrong type for $index
// or $input are dropped.
func NewContext(seed, input map[string]any) *Context {
	c := &Context{store: &contextStore{
		values: make(map[string]any, len(seed)+len(input)),
	}}
	for k, v := range seed {
		_ = c.Set(k, v)
	}
	for k, v := range input {
		_ = c.Set(k, v)
	}

	in := make(map[string]any, len(input))
	maps.Copy(in, input)
	c.store.input = in
	return c
}

// Get returns the value stored under key. Reserved keys read the
// corresponding typed field.
func (c *Context) Get(key string) (any, bool) {
	switch key {
	case KeyItem:
		item, _, ok := c.Item()
		return item, ok
	case KeyIndex:
		_, idx, ok := c.Item()
		if !ok {
			return nil, false
		}
		return idx, true
	}

	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch key {
	case KeyLastResult:
		return s.lastResult, s.hasLastResult
	case KeyLastError:
		if !s.hasLastError {
			return nil, false
		}
		return s.lastError, true
	case KeyInput:
		return maps.Clone(s.input), true
	}
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key. Reserved keys update the corresponding typed
// field: $lastError is stored as its string form, $index must be an int and
// $input must be a map[string]any.
func (c *Context) Set(key string, value any) error {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case KeyLastResult:
		s.lastResult, s.hasLastResult = value, true
	case KeyLastError:
		s.lastError, s.hasLastError = fmt.Sprint(value), true
	case KeyItem:
		s.item, s.hasItem = value, true
	case KeyIndex:
		idx, ok := value.(int)
		if !ok {
			return fmt.Errorf("context key %s expects int, got %T", key, value)
		}
		s.index, s.hasItem = idx, true
	case KeyInput:
		in, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("context key %s expects map[string]any, got %T", key, value)
		}
		s.input = maps.Clone(in)
	default:
		s.values[key] = value
	}
	return nil
}

// Delete removes key from the open map. Reserved keys are cleared.
func (c *Context) Delete(key string) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case KeyLastResult:
		s.lastResult, s.hasLastResult = nil, false
	case KeyLastError:
		s.lastError, s.hasLastError = "", false
	case KeyItem, KeyIndex:
		s.item, s.index, s.hasItem = nil, 0, false
	case KeyInput:
		s.input = map[string]any{}
	default:
		delete(s.values, key)
	}
}

// LastResult returns the most recently stored step result.
func (c *Context) LastResult() (any, bool) {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult, s.hasLastResult
}

// SetLastResult stores v as the most recent step result.
func (c *Context) SetLastResult(v any) {
	s := c.store
	s.mu.Lock()
	s.lastResult, s.hasLastResult = v, true
	s.mu.Unlock()
}

// LastError returns the message of the last error swallowed by a step with
// the continue policy.
func (c *Context) LastError() (string, bool) {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError, s.hasLastError
}

// SetLastError records msg as the last swallowed error.
func (c *Context) SetLastError(msg string) {
	s := c.store
	s.mu.Lock()
	s.lastError, s.hasLastError = msg, true
	s.mu.Unlock()
}

// Input returns a copy of the raw run input.
func (c *Context) Input() map[string]any {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.input)
}

// Item returns the current loop item and its zero-based index. Inside a loop
// body this is the binding of the running iteration; elsewhere it is the
// last binding written by any loop of the run.
func (c *Context) Item() (any, int, bool) {
	if c.bound {
		return c.item, c.index, true
	}
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item, s.index, s.hasItem
}

// Bind returns a view of c whose Item reports item and index. The view shares
// all other state with c. The binding is also written to the shared $item and
// $index keys.
func (c *Context) Bind(item any, index int) *Context {
	s := c.store
	s.mu.Lock()
	s.item, s.index, s.hasItem = item, index, true
	s.mu.Unlock()

	return &Context{store: s, bound: true, item: item, index: index}
}

// Snapshot returns a copy of all user values plus every reserved key that
// currently holds a value.
func (c *Context) Snapshot() map[string]any {
	s := c.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values)+5)
	maps.Copy(out, s.values)
	out[KeyInput] = maps.Clone(s.input)
	if s.hasLastResult {
		out[KeyLastResult] = s.lastResult
	}
	if s.hasLastError {
		out[KeyLastError] = s.lastError
	}
	if s.hasItem {
		out[KeyItem] = s.item
		out[KeyIndex] = s.index
	}
	return out
}

type stepCtxKey struct{}

// WithStep attaches the step being evaluated to ctx, so handlers shared by
// several steps can read their own configuration.
func WithStep(ctx context.Context, step Step) context.Context {
	return context.WithValue(ctx, stepCtxKey{}, step)
}

// StepFromContext returns the step attached by WithStep.
func StepFromContext(ctx context.Context) (Step, bool) {
	step, ok := ctx.Value(stepCtxKey{}).(Step)
	return step, ok
}
