package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/stepgraph/internal/persistence"
	"github.com/petrijr/stepgraph/pkg/api"
)

// DefaultMaxTransitions bounds the number of steps a single run may execute
// when Config.MaxTransitions is zero. A negative value removes the bound.
const DefaultMaxTransitions = 10000

// Config describes how to construct an engine.
// Zero values are replaced by defaults in NewEngine.
type Config struct {
	// History receives run summaries and execution records. Defaults to
	// persistence.NoopHistoryStore.
	History persistence.HistoryStore
	// Observer is notified about run and step lifecycle events.
	Observer api.Observer
	// Logger is used for internal warnings such as failed history writes.
	Logger *slog.Logger

	// MaxTransitions caps the steps executed by one run. Cyclic graphs fail
	// with api.ErrTransitionLimit once the cap is hit. Zero selects
	// DefaultMaxTransitions; a negative value means unlimited.
	MaxTransitions int
	// MaxParallelism caps concurrent children of a parallel step.
	// Zero means unlimited.
	MaxParallelism int
	// StepTimeout bounds each step evaluation. Zero means no timeout.
	StepTimeout time.Duration
	// StrictValidation makes Run reject workflows with dangling references
	// instead of failing when the run reaches them.
	StrictValidation bool

	Clock func() time.Time
	NewID func() string
}

func (c Config) normalize() Config {
	if c.History == nil {
		c.History = persistence.NoopHistoryStore{}
	}
	if c.Observer == nil {
		c.Observer = api.NoopObserver{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	switch {
	case c.MaxTransitions == 0:
		c.MaxTransitions = DefaultMaxTransitions
	case c.MaxTransitions < 0:
		c.MaxTransitions = -1
	}
	if c.MaxParallelism < 0 {
		c.MaxParallelism = 0
	}
	if c.StepTimeout < 0 {
		c.StepTimeout = 0
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}
