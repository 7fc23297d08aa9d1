package layer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/metrics"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
)

// LayerBuilderOption is a functional option for configuring a Layer during construction.
type LayerBuilderOption func(*layer)

// WithLogger is an option builder that sets the logger used for reporting rejected calls and lookup misses.
// Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - LayerBuilderOption: a function that applies the logger to a layer
func WithLogger(logger *slog.Logger) LayerBuilderOption {
	return func(l *layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics is an option builder that records transitions, transient nodes, queue activity and update
// timings into m.
//
// Parameters:
//   - m: the collectors, may be nil
//
// Returns:
//   - LayerBuilderOption: a function that applies the metrics to a layer
func WithMetrics(m *metrics.Metrics) LayerBuilderOption {
	return func(l *layer) {
		l.metrics = m
	}
}

// WithDefaultTransition is an option builder that sets the transition used when no default transition is
// authored between two states. Defaults to state.Instant().
//
// Parameters:
//   - data: the fallback transition
//
// Returns:
//   - LayerBuilderOption: a function that applies the fallback transition to a layer
func WithDefaultTransition(data state.TransitionData) LayerBuilderOption {
	return func(l *layer) {
		l.defaultTransition = data
	}
}

// WithClipSwapper is an option builder that sets the clip substitution provider consulted whenever a node is
// built.
//
// Parameters:
//   - s: the swapper
//
// Returns:
//   - LayerBuilderOption: a function that applies the swapper to a layer
func WithClipSwapper(s clip.Swapper) LayerBuilderOption {
	return func(l *layer) {
		l.swapper = s
	}
}

// WithBlendVar is an option builder that seeds a blend variable before the states are instantiated, so blend
// trees start at the right weights.
//
// Parameters:
//   - name: the blend variable name
//   - value: the initial value
//
// Returns:
//   - LayerBuilderOption: a function that applies the blend variable to a layer
func WithBlendVar(name string, value float32) LayerBuilderOption {
	return func(l *layer) {
		l.vars.Set(name, value)
	}
}
