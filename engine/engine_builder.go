package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger used for loop diagnostics. Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithFixedStep makes Run advance every tick by dt seconds instead of the measured wall time, so a run is
// reproducible regardless of scheduling jitter.
//
// Parameters:
//   - dt: the step in seconds, <= 0 to measure wall time (default)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFixedStep(dt float32) EngineBuilderOption {
	return func(e *engine) {
		e.fixedStep = max(dt, 0)
	}
}

// WithAnimator registers an animator at the given key during engine construction.
// Animators update in ascending key order.
//
// Parameters:
//   - key: the update order key (lower updates first)
//   - a: the animator to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAnimator(key int, a animator.Animator) EngineBuilderOption {
	return func(e *engine) {
		e.animators[key] = a
	}
}
