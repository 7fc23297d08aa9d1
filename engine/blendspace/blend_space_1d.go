package blendspace

import (
	"math"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// Entry1D is one authored point of a 1D blend space.
type Entry1D struct {
	// Threshold is the variable value at which this entry has full weight.
	Threshold float32

	// Duration is the length of the entry's clip in seconds, used for duration compensation.
	Duration float32
}

// blendSpace1D is the implementation of the BlendSpace1D interface.
type blendSpace1D struct {
	mixer      graph.Node
	variable   string
	thresholds []float32
	durations  []float32
	compensate bool

	hasValue             bool
	lastValue            float32
	interpolatedDuration float32
	recomputes           int
}

// BlendSpace1D maps a scalar variable onto the input weights of a mixer node by linearly interpolating between
// the two entries whose thresholds bracket the value.
type BlendSpace1D interface {
	Consumer

	// SetValue recomputes the mixer weights for v. Values outside the authored range clamp to the edge entry.
	// Calling SetValue with the bit-identical previous value is a no-op, and so is a NaN or infinite value.
	//
	// Parameters:
	//   - v: the blend variable value
	SetValue(v float32)

	// Value returns the last value applied.
	Value() float32

	// Weights returns the current input weights, one per entry.
	//
	// Returns:
	//   - []float32: a copy of the weights
	Weights() []float32

	// InterpolatedDuration returns the blended clip length for the current value: lerp of the bracketing
	// entries' durations.
	//
	// Returns:
	//   - float32: the interpolated duration in seconds
	InterpolatedDuration() float32

	// Recomputes returns how many times weights were actually recomputed.
	Recomputes() int
}

var _ BlendSpace1D = &blendSpace1D{}

// NewBlendSpace1D creates a 1D blend space driving mixer, whose input slot i corresponds to entries[i].
// Thresholds must be strictly increasing. The initial value is the first threshold.
//
// Parameters:
//   - mixer: the mixer node whose input weights are assigned
//   - variable: the name of the blend variable driving this space
//   - entries: the authored entries, sorted by strictly increasing threshold
//   - compensate: whether to rescale every input's speed to align clip durations
//
// Returns:
//   - BlendSpace1D: the blend space
//   - error: a ConfigurationError if entries are empty, unsorted or the mixer is too small
func NewBlendSpace1D(mixer graph.Node, variable string, entries []Entry1D, compensate bool) (BlendSpace1D, error) {
	if len(entries) == 0 {
		return nil, common.NewConfigurationError("blendspace1d "+variable, "at least one entry is required")
	}
	if mixer == nil || mixer.InputCount() < len(entries) {
		return nil, common.NewConfigurationError("blendspace1d "+variable, "mixer must have %d inputs", len(entries))
	}
	b := &blendSpace1D{
		mixer:      mixer,
		variable:   variable,
		thresholds: make([]float32, len(entries)),
		durations:  make([]float32, len(entries)),
		compensate: compensate,
	}
	for i, e := range entries {
		if i > 0 && e.Threshold <= entries[i-1].Threshold {
			return nil, common.NewConfigurationError("blendspace1d "+variable,
				"thresholds must be strictly increasing: entry %d (%g) follows %g", i, e.Threshold, entries[i-1].Threshold)
		}
		b.thresholds[i] = e.Threshold
		b.durations[i] = e.Duration
	}
	b.SetValue(entries[0].Threshold)
	return b, nil
}

func (b *blendSpace1D) Variables() []string {
	return []string{b.variable}
}

func (b *blendSpace1D) SetVariable(name string, value float32) {
	if name == b.variable {
		b.SetValue(value)
	}
}

// Update is a no-op; 1D weights are applied as soon as the value changes.
func (b *blendSpace1D) Update() {}

func (b *blendSpace1D) SetValue(v float32) {
	if !common.IsFinite(v) {
		return
	}
	if b.hasValue && math.Float32bits(v) == math.Float32bits(b.lastValue) {
		return
	}
	b.hasValue = true
	b.lastValue = v
	b.recomputes++

	last := len(b.thresholds) - 1
	clamped := common.Clamp(v, b.thresholds[0], b.thresholds[last])

	before := 0
	for i := last; i >= 0; i-- {
		if b.thresholds[i] <= clamped {
			before = i
			break
		}
	}
	after := min(before+1, last)

	var t float32
	if before != after {
		t = (clamped - b.thresholds[before]) / (b.thresholds[after] - b.thresholds[before])
	}

	for i := range b.thresholds {
		switch i {
		case before:
			b.mixer.SetInputWeight(i, 1-t)
		case after:
			b.mixer.SetInputWeight(i, t)
		default:
			b.mixer.SetInputWeight(i, 0)
		}
	}

	b.interpolatedDuration = common.Lerp(b.durations[before], b.durations[after], t)
	if b.compensate && b.interpolatedDuration > 0 {
		for i, d := range b.durations {
			if in := b.mixer.Input(i); in != nil {
				in.SetSpeed(d / b.interpolatedDuration)
			}
		}
	}
}

func (b *blendSpace1D) Value() float32 {
	return b.lastValue
}

func (b *blendSpace1D) Weights() []float32 {
	w := make([]float32, len(b.thresholds))
	for i := range w {
		w[i] = b.mixer.InputWeight(i)
	}
	return w
}

func (b *blendSpace1D) InterpolatedDuration() float32 {
	return b.interpolatedDuration
}

func (b *blendSpace1D) Recomputes() int {
	return b.recomputes
}
