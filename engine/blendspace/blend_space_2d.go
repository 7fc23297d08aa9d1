package blendspace

import (
	"math"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// Axis selects one input dimension of a 2D blend space.
type Axis int

const (
	// AxisX is the horizontal blend axis.
	AxisX Axis = iota
	// AxisY is the vertical blend axis.
	AxisY
)

// dirtyFraction is the share of an axis range the input has to move before weights are recomputed.
const dirtyFraction = 0.01

// Entry2D is one authored point of a 2D blend space.
type Entry2D struct {
	// Threshold is the position at which this entry has full weight.
	Threshold common.Vec2

	// Duration is the length of the entry's clip in seconds.
	Duration float32
}

// blendSpace2D is the implementation of the BlendSpace2D interface.
type blendSpace2D struct {
	mixer      graph.Node
	xVar, yVar string

	points    []common.Vec2
	durations []float32
	min, max  common.Vec2

	// diffs[i*n+j] = points[j] - points[i]; invLenSq[i*n+j] = 1 / |diffs[i*n+j]|^2
	diffs    []common.Vec2
	invLenSq []float32

	pending, applied common.Vec2
	dirty            bool
	recomputes       int
	influence        []float32
}

// BlendSpace2D maps a 2D input onto the input weights of a mixer node using gradient band interpolation
// (Johansen). Input changes are batched: SetValue only marks the space dirty, Update applies it.
type BlendSpace2D interface {
	Consumer

	// SetValue sets one axis of the input, clamped to that axis's authored range. The space becomes dirty only
	// when the input has moved more than 1% of the axis range from the last applied input. NaN and infinite
	// values are ignored.
	//
	// Parameters:
	//   - axis: AxisX or AxisY
	//   - v: the new axis value
	SetValue(axis Axis, v float32)

	// SetX is shorthand for SetValue(AxisX, v).
	SetX(v float32)

	// SetY is shorthand for SetValue(AxisY, v).
	SetY(v float32)

	// Input returns the pending (possibly not yet applied) input.
	Input() common.Vec2

	// Dirty reports whether an Update will recompute weights.
	Dirty() bool

	// Weights returns the current input weights, one per entry.
	//
	// Returns:
	//   - []float32: a copy of the weights
	Weights() []float32

	// WeightedDuration returns the clip durations weighted by the current weights.
	WeightedDuration() float32

	// Range returns the authored per-axis bounds.
	//
	// Returns:
	//   - common.Vec2: the minimum corner
	//   - common.Vec2: the maximum corner
	Range() (common.Vec2, common.Vec2)

	// Recomputes returns how many times weights were actually recomputed.
	Recomputes() int
}

var _ BlendSpace2D = &blendSpace2D{}

// NewBlendSpace2D creates a 2D blend space driving mixer, whose input slot i corresponds to entries[i].
// Coincident threshold points are rejected because they make the influence term undefined.
// The initial input is the origin clamped to the authored range, applied immediately.
//
// Parameters:
//   - mixer: the mixer node whose input weights are assigned
//   - xVar: the blend variable driving the X axis
//   - yVar: the blend variable driving the Y axis
//   - entries: the authored entries
//
// Returns:
//   - BlendSpace2D: the blend space
//   - error: a ConfigurationError if entries are empty, coincide or the mixer is too small
func NewBlendSpace2D(mixer graph.Node, xVar, yVar string, entries []Entry2D) (BlendSpace2D, error) {
	component := "blendspace2d " + xVar + "/" + yVar
	if len(entries) == 0 {
		return nil, common.NewConfigurationError(component, "at least one entry is required")
	}
	if mixer == nil || mixer.InputCount() < len(entries) {
		return nil, common.NewConfigurationError(component, "mixer must have %d inputs", len(entries))
	}

	n := len(entries)
	b := &blendSpace2D{
		mixer:     mixer,
		xVar:      xVar,
		yVar:      yVar,
		points:    make([]common.Vec2, n),
		durations: make([]float32, n),
		diffs:     make([]common.Vec2, n*n),
		invLenSq:  make([]float32, n*n),
		influence: make([]float32, n),
	}
	b.min = entries[0].Threshold
	b.max = entries[0].Threshold
	for i, e := range entries {
		b.points[i] = e.Threshold
		b.durations[i] = e.Duration
		b.min.X = min(b.min.X, e.Threshold.X)
		b.min.Y = min(b.min.Y, e.Threshold.Y)
		b.max.X = max(b.max.X, e.Threshold.X)
		b.max.Y = max(b.max.Y, e.Threshold.Y)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := b.points[j].Sub(b.points[i])
			lenSq := d.LengthSq()
			if lenSq == 0 {
				return nil, common.NewConfigurationError(component,
					"entries %d and %d share the threshold point (%g, %g)", i, j, b.points[i].X, b.points[i].Y)
			}
			b.diffs[i*n+j] = d
			b.invLenSq[i*n+j] = 1 / lenSq
		}
	}

	b.pending = common.Vec2{
		X: common.Clamp(0, b.min.X, b.max.X),
		Y: common.Clamp(0, b.min.Y, b.max.Y),
	}
	b.recompute()
	return b, nil
}

func (b *blendSpace2D) Variables() []string {
	if b.xVar == b.yVar {
		return []string{b.xVar}
	}
	return []string{b.xVar, b.yVar}
}

func (b *blendSpace2D) SetVariable(name string, value float32) {
	if name == b.xVar {
		b.SetValue(AxisX, value)
	}
	if name == b.yVar {
		b.SetValue(AxisY, value)
	}
}

func (b *blendSpace2D) SetValue(axis Axis, v float32) {
	if !common.IsFinite(v) {
		return
	}
	switch axis {
	case AxisX:
		b.pending.X = common.Clamp(v, b.min.X, b.max.X)
		if moved(b.pending.X, b.applied.X, b.max.X-b.min.X) {
			b.dirty = true
		}
	case AxisY:
		b.pending.Y = common.Clamp(v, b.min.Y, b.max.Y)
		if moved(b.pending.Y, b.applied.Y, b.max.Y-b.min.Y) {
			b.dirty = true
		}
	}
}

func moved(v, applied, axisRange float32) bool {
	return float32(math.Abs(float64(v-applied))) > axisRange*dirtyFraction
}

func (b *blendSpace2D) SetX(v float32) {
	b.SetValue(AxisX, v)
}

func (b *blendSpace2D) SetY(v float32) {
	b.SetValue(AxisY, v)
}

func (b *blendSpace2D) Update() {
	if !b.dirty {
		return
	}
	b.recompute()
}

func (b *blendSpace2D) recompute() {
	b.dirty = false
	b.applied = b.pending
	b.recomputes++

	n := len(b.points)
	if n == 1 {
		b.mixer.SetInputWeight(0, 1)
		return
	}

	var total float32
	for i := 0; i < n; i++ {
		p := b.applied.Sub(b.points[i])
		influence := float32(math.MaxFloat32)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			h := 1 - p.Dot(b.diffs[i*n+j])*b.invLenSq[i*n+j]
			if h < influence {
				influence = h
			}
		}
		if influence < 0 {
			influence = 0
		}
		b.influence[i] = influence
		total += influence
	}

	if total <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		b.mixer.SetInputWeight(i, b.influence[i]/total)
	}
}

func (b *blendSpace2D) Input() common.Vec2 {
	return b.pending
}

func (b *blendSpace2D) Dirty() bool {
	return b.dirty
}

func (b *blendSpace2D) Weights() []float32 {
	w := make([]float32, len(b.points))
	for i := range w {
		w[i] = b.mixer.InputWeight(i)
	}
	return w
}

func (b *blendSpace2D) WeightedDuration() float32 {
	var d float32
	for i, dur := range b.durations {
		d += b.mixer.InputWeight(i) * dur
	}
	return d
}

func (b *blendSpace2D) Range() (common.Vec2, common.Vec2) {
	return b.min, b.max
}

func (b *blendSpace2D) Recomputes() int {
	return b.recomputes
}
