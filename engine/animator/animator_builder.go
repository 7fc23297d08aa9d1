package animator

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-blend/engine/metrics"
	"github.com/Carmen-Shannon/oxy-blend/engine/profiler"
	"github.com/Carmen-Shannon/oxy-blend/engine/renderer/weight_buffer"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLogger is an option builder that sets the logger handed to every layer created through AddLayer.
// Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger to an animator
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics is an option builder that records layer activity into m.
//
// Parameters:
//   - m: the collectors
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the metrics to an animator
func WithMetrics(m *metrics.Metrics) AnimatorBuilderOption {
	return func(a *animator) {
		a.metrics = m
	}
}

// WithParallelLayers is an option builder that updates layers on a pool of worker goroutines instead of the
// calling goroutine. Event listeners then run on the workers. Layers never share nodes, so they can be
// updated independently; Update still returns only once every layer is done.
//
// Parameters:
//   - workers: the number of workers (minimum 1)
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the worker pool to an animator
func WithParallelLayers(workers int) AnimatorBuilderOption {
	return func(a *animator) {
		if workers < 1 {
			workers = 1
		}
		a.pool = worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
		a.parallel = true
	}
}

// WithProfiling is an option builder that ticks p every Update and records each layer's update time.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the profiler to an animator
func WithProfiling(p *profiler.Profiler) AnimatorBuilderOption {
	return func(a *animator) {
		a.profiler = p
	}
}

// WithWeightBuffer is an option builder that stages every layer's slot weights into w after each Update.
// Layer i is staged into run i of the buffer.
//
// Parameters:
//   - w: the weight buffer
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the weight buffer to an animator
func WithWeightBuffer(w weight_buffer.WeightBuffer) AnimatorBuilderOption {
	return func(a *animator) {
		a.weights = w
	}
}
