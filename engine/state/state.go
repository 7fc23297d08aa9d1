// Package state defines the authored playable units of a layer (single clips, random clips, sequences and
// 1D/2D blend trees), the runtime instances they generate in the pose graph, and the transitions between them.
package state

import (
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/google/uuid"
)

// Kind identifies the variant of a State.
type Kind int

const (
	// KindSingleClip plays one clip.
	KindSingleClip Kind = iota
	// KindRandomClip plays one clip picked at random each time the state starts.
	KindRandomClip
	// KindSequence plays its clips one after another.
	KindSequence
	// KindBlendTree1D blends clips along one blend variable.
	KindBlendTree1D
	// KindBlendTree2D blends clips across two blend variables.
	KindBlendTree2D
)

func (k Kind) String() string {
	switch k {
	case KindSingleClip:
		return "single_clip"
	case KindRandomClip:
		return "random_clip"
	case KindSequence:
		return "sequence"
	case KindBlendTree1D:
		return "blend_tree_1d"
	case KindBlendTree2D:
		return "blend_tree_2d"
	default:
		return "unknown"
	}
}

// Event is a named point in a state's playback. Listeners registered on the layer fire when playback crosses Time.
type Event struct {
	// Name identifies the event for listener registration.
	Name string

	// Time is the event position in seconds of state time.
	Time float32

	// MinWeight is the weight the state must have for the event to fire.
	MinWeight float32

	// MustBeActiveState restricts firing to the layer's currently played state (not states fading out).
	MustBeActiveState bool
}

// State is one playable unit owned by a layer. It is authored data; Instantiate builds the runtime node.
type State interface {
	// GUID returns the stable identity of the state, unaffected by renames and reordering.
	GUID() uuid.UUID

	// Name returns the display name used for lookups.
	Name() string

	// SetName renames the state. The owning layer must rebuild its name index afterwards.
	//
	// Parameters:
	//   - name: the new name
	SetName(name string)

	// Speed returns the playback speed multiplier applied to the state's node.
	Speed() float32

	// Loops reports whether the state loops.
	Loops() bool

	// Events returns the timed events of the state.
	Events() []Event

	// Kind returns the variant of the state.
	Kind() Kind

	// Instantiate generates the state's playable node tree in g. Every clip goes through swapper first.
	//
	// Parameters:
	//   - g: the graph to create nodes in
	//   - swapper: the clip substitution provider, may be nil
	//
	// Returns:
	//   - Instance: the runtime instance wrapping the root node
	//   - error: a ConfigurationError if the state cannot be built
	Instantiate(g graph.Graph, swapper clip.Swapper) (Instance, error)
}

// StateBuilderOption is a functional option for configuring the shared attributes of a State.
type StateBuilderOption func(*base)

// WithGUID is an option builder that sets a fixed GUID instead of a random one.
//
// Parameters:
//   - id: the GUID to use
//
// Returns:
//   - StateBuilderOption: a function that applies the GUID to a state
func WithGUID(id uuid.UUID) StateBuilderOption {
	return func(b *base) {
		b.guid = id
	}
}

// WithSpeed is an option builder that sets the playback speed multiplier. Defaults to 1.
//
// Parameters:
//   - speed: the speed multiplier
//
// Returns:
//   - StateBuilderOption: a function that applies the speed to a state
func WithSpeed(speed float32) StateBuilderOption {
	return func(b *base) {
		b.speed = speed
	}
}

// WithLoop is an option builder that sets whether the state loops. Defaults to true.
//
// Parameters:
//   - loop: true to loop
//
// Returns:
//   - StateBuilderOption: a function that applies the loop flag to a state
func WithLoop(loop bool) StateBuilderOption {
	return func(b *base) {
		b.loop = loop
	}
}

// WithEvents is an option builder that attaches timed events to the state.
//
// Parameters:
//   - events: the events to attach
//
// Returns:
//   - StateBuilderOption: a function that applies the events to a state
func WithEvents(events ...Event) StateBuilderOption {
	return func(b *base) {
		b.events = append(b.events, events...)
	}
}

// base holds the attributes every State variant shares.
type base struct {
	guid   uuid.UUID
	name   string
	speed  float32
	loop   bool
	events []Event
}

func newBase(name string, options []StateBuilderOption) base {
	b := base{
		guid:  uuid.New(),
		name:  name,
		speed: 1,
		loop:  true,
	}
	for _, opt := range options {
		opt(&b)
	}
	return b
}

func (b *base) GUID() uuid.UUID {
	return b.guid
}

func (b *base) Name() string {
	return b.name
}

func (b *base) SetName(name string) {
	b.name = name
}

func (b *base) Speed() float32 {
	return b.speed
}

func (b *base) Loops() bool {
	return b.loop
}

func (b *base) Events() []Event {
	return b.events
}
