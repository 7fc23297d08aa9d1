// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types, math helpers and the error taxonomy shared by every subsystem.
package common

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is matched (via errors.Is) by every ConfigurationError.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigurationError reports malformed authored data: unsorted thresholds, a curve transition without a curve,
// a clip transition without a clip, coincident blend space points and similar. It is returned from constructors
// and aborts setup.
type ConfigurationError struct {
	// Component names the thing being configured, e.g. "blendspace1d" or "layer Base".
	Component string
	// Message describes what is wrong.
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Message)
	}
	return fmt.Sprintf("%s: invalid configuration: %s", e.Component, e.Message)
}

// Is reports whether target is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// NewConfigurationError builds a ConfigurationError with a formatted message.
//
// Parameters:
//   - component: the component being configured
//   - format: a fmt format string
//   - args: the format arguments
//
// Returns:
//   - error: the ConfigurationError
func NewConfigurationError(component, format string, args ...any) error {
	return &ConfigurationError{Component: component, Message: fmt.Sprintf(format, args...)}
}

// BoundsError reports an out-of-range state or layer index passed to a public call.
// Callers never see it as a panic; it is logged and the call returns a sentinel.
type BoundsError struct {
	// Kind is what was indexed, "state" or "layer".
	Kind string
	// Index is the offending index.
	Index int
	// Count is the number of valid entries.
	Count int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Count)
}

// ConsistencyError reports that a layer's live node count diverged from its state count once a transition
// completed. It is an internal invariant violation and is raised with panic.
type ConsistencyError struct {
	Layer  string
	Nodes  int
	States int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("layer %q: %d live nodes after transition, expected %d", e.Layer, e.Nodes, e.States)
}

// LookupMissError reports a transition lookup that did not resolve as authored: a duplicate default transition
// between the same pair of states, or an unknown named transition. It is non-fatal and logged as a warning.
type LookupMissError struct {
	Layer string
	From  string
	To    string
	Name  string
}

func (e *LookupMissError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("layer %q: no transition named %q from %q to %q", e.Layer, e.Name, e.From, e.To)
	}
	return fmt.Sprintf("layer %q: more than one default transition from %q to %q, using the first", e.Layer, e.From, e.To)
}
