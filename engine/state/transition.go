package state

import (
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/google/uuid"
)

// TransitionType selects how weights move from the current state to the target.
type TransitionType int

const (
	// TransitionLinear ramps weights linearly over Duration. A Duration <= 0 is an instant snap.
	TransitionLinear TransitionType = iota
	// TransitionCurve ramps weights over Duration, remapping progress through Curve.
	TransitionCurve
	// TransitionClip plays a dedicated transition clip at full weight, then snaps to the target.
	TransitionClip
)

func (t TransitionType) String() string {
	switch t {
	case TransitionLinear:
		return "linear"
	case TransitionCurve:
		return "curve"
	case TransitionClip:
		return "clip"
	default:
		return "unknown"
	}
}

// TransitionData describes one crossfade.
type TransitionData struct {
	// Type is the crossfade kind.
	Type TransitionType

	// Duration is the crossfade length in seconds. Clip transitions ignore it and last as long as the clip the
	// layer actually plays, after any clip swap.
	Duration float32

	// Curve remaps progress for TransitionCurve. Required for that type.
	Curve *clip.Curve

	// Clip is the dedicated transition clip for TransitionClip. Required for that type.
	Clip *clip.Clip
}

// Instant returns a transition that snaps to the target within the calling frame.
func Instant() TransitionData {
	return TransitionData{Type: TransitionLinear}
}

// Linear returns a linear crossfade over duration seconds.
//
// Parameters:
//   - duration: the crossfade length in seconds
//
// Returns:
//   - TransitionData: the transition
func Linear(duration float32) TransitionData {
	return TransitionData{Type: TransitionLinear, Duration: duration}
}

// CurveTransition returns a crossfade over duration seconds eased by c.
//
// Parameters:
//   - duration: the crossfade length in seconds
//   - c: the easing curve applied to progress
//
// Returns:
//   - TransitionData: the transition
func CurveTransition(duration float32, c *clip.Curve) TransitionData {
	return TransitionData{Type: TransitionCurve, Duration: duration, Curve: c}
}

// ClipTransition returns a transition played through the dedicated clip c. Its duration is c's length.
//
// Parameters:
//   - c: the transition clip
//
// Returns:
//   - TransitionData: the transition
func ClipTransition(c *clip.Clip) TransitionData {
	d := TransitionData{Type: TransitionClip, Clip: c}
	if c != nil {
		d.Duration = c.Duration
	}
	return d
}

// IsInstant reports whether the transition completes within the call that starts it.
func (d TransitionData) IsInstant() bool {
	return d.Type != TransitionClip && d.Duration <= 0
}

// Validate checks the type-specific requirements.
//
// Returns:
//   - error: a ConfigurationError if a curve or clip is missing
func (d TransitionData) Validate() error {
	switch d.Type {
	case TransitionCurve:
		if d.Curve == nil {
			return common.NewConfigurationError("transition", "curve transition requires a curve")
		}
	case TransitionClip:
		if d.Clip == nil {
			return common.NewConfigurationError("transition", "clip transition requires a clip")
		}
	case TransitionLinear:
	default:
		return common.NewConfigurationError("transition", "unknown transition type %d", int(d.Type))
	}
	return nil
}

// Transition is an authored directed edge between two states, referenced by GUID so it survives reordering.
type Transition struct {
	// Name addresses non-default transitions. May be empty for default ones.
	Name string

	// From and To are the GUIDs of the source and target states.
	From, To uuid.UUID

	// IsDefault marks the transition used by a plain Play between From and To. At most one per pair.
	IsDefault bool

	// Data is the crossfade to run.
	Data TransitionData
}

// NewTransition builds a transition between two states.
//
// Parameters:
//   - from: the source state
//   - to: the target state
//   - data: the crossfade to run
//   - isDefault: whether this is the default transition for the pair
//
// Returns:
//   - Transition: the transition
func NewTransition(from, to State, data TransitionData, isDefault bool) Transition {
	return Transition{From: from.GUID(), To: to.GUID(), Data: data, IsDefault: isDefault}
}

// Named returns a copy of t with the given name.
//
// Parameters:
//   - name: the transition name
//
// Returns:
//   - Transition: the renamed copy
func (t Transition) Named(name string) Transition {
	t.Name = name
	return t
}
