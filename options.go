package stepgraph

import (
	"log/slog"
	"time"

	"github.com/petrijr/stepgraph/internal/engine"
)

// Option customizes an engine built by NewEngine or one of the backend
// constructors.
type Option func(*settings)

type settings struct {
	cfg engine.Config
}

func buildConfig(opts []Option) engine.Config {
	var s settings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s.cfg
}

// WithObserver sets the observer notified about run and step events. Use
// NewCompositeObserver to attach several.
func WithObserver(obs Observer) Option {
	return func(s *settings) {
		s.cfg.Observer = obs
	}
}

// WithHistoryStore sets where run summaries and execution records are
// persisted. Backend constructors such as NewSQLiteEngine override it.
func WithHistoryStore(store HistoryStore) Option {
	return func(s *settings) {
		s.cfg.History = store
	}
}

// WithLogger sets the logger used for internal warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.cfg.Logger = logger
	}
}

// WithMaxTransitions caps the number of steps a single run may execute.
// Zero keeps the default of 10000; a negative n removes the cap.
func WithMaxTransitions(n int) Option {
	return func(s *settings) {
		s.cfg.MaxTransitions = n
	}
}

// WithMaxParallelism caps the concurrent children of a parallel step.
func WithMaxParallelism(n int) Option {
	return func(s *settings) {
		s.cfg.MaxParallelism = n
	}
}

// WithStepTimeout bounds every step evaluation.
func WithStepTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.cfg.StepTimeout = d
	}
}

// WithStrictValidation makes Run reject workflows with dangling step
// references up front.
func WithStrictValidation() Option {
	return func(s *settings) {
		s.cfg.StrictValidation = true
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.cfg.Clock = clock
		}
	}
}
