package state

import (
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/blendspace"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// BlendTree1DEntry is one clip of a 1D blend tree.
type BlendTree1DEntry struct {
	Clip      *clip.Clip
	Threshold float32
}

// BlendTree1DState blends its clips along a single blend variable.
type BlendTree1DState struct {
	base
	variable   string
	entries    []BlendTree1DEntry
	compensate bool
}

var _ State = &BlendTree1DState{}

// NewBlendTree1D creates a 1D blend tree state. Entries must be sorted by strictly increasing threshold.
//
// Parameters:
//   - name: the state name
//   - variable: the blend variable driving the tree
//   - entries: the clips and their thresholds
//   - compensate: whether to align clip durations by rescaling clip speeds
//   - options: shared state options (speed, loop, events, GUID)
//
// Returns:
//   - *BlendTree1DState: the new state
func NewBlendTree1D(name, variable string, entries []BlendTree1DEntry, compensate bool, options ...StateBuilderOption) *BlendTree1DState {
	return &BlendTree1DState{base: newBase(name, options), variable: variable, entries: entries, compensate: compensate}
}

// Variable returns the blend variable name.
func (s *BlendTree1DState) Variable() string {
	return s.variable
}

// Entries returns the authored entries.
func (s *BlendTree1DState) Entries() []BlendTree1DEntry {
	return s.entries
}

func (s *BlendTree1DState) Kind() Kind {
	return KindBlendTree1D
}

func (s *BlendTree1DState) Instantiate(g graph.Graph, swapper clip.Swapper) (Instance, error) {
	if len(s.entries) == 0 {
		return nil, common.NewConfigurationError("state "+s.name, "1D blend tree has no entries")
	}
	for i, e := range s.entries {
		if e.Clip == nil {
			return nil, common.NewConfigurationError("state "+s.name, "entry %d has no clip", i)
		}
	}
	nodes := make([]graph.Node, len(s.entries))
	entries := make([]blendspace.Entry1D, len(s.entries))
	for i, e := range s.entries {
		resolved := clip.Resolve(swapper, e.Clip)
		nodes[i] = g.CreateClipNode(resolved)
		entries[i] = blendspace.Entry1D{Threshold: e.Threshold, Duration: resolved.Duration}
	}
	m, err := buildMixer(g, s, nodes)
	if err != nil {
		return nil, err
	}
	space, err := blendspace.NewBlendSpace1D(m.mixer, s.variable, entries, s.compensate)
	if err != nil {
		m.Destroy()
		return nil, err
	}
	durations := make([]float32, len(entries))
	for i, e := range entries {
		durations[i] = e.Duration
	}
	return &blendTree1DInstance{mixerInstance: m, space: space, compensate: s.compensate, durations: durations}, nil
}

type blendTree1DInstance struct {
	*mixerInstance
	space      blendspace.BlendSpace1D
	compensate bool
	durations  []float32
}

// Space returns the instance's blend space controller.
func (i *blendTree1DInstance) Space() blendspace.BlendSpace1D {
	return i.space
}

func (i *blendTree1DInstance) Duration() float32 {
	if i.compensate {
		return i.space.InterpolatedDuration()
	}
	return i.weightedDuration(i.durations)
}

func (i *blendTree1DInstance) SetTime(t float32) {
	i.setChildTimes(t)
}

func (i *blendTree1DInstance) JumpToRelativeTime(fraction float32) {
	i.setChildTimes(fraction * i.Duration())
}

func (i *blendTree1DInstance) Consumers() []blendspace.Consumer {
	return []blendspace.Consumer{i.space}
}

// BlendTree2DEntry is one clip of a 2D blend tree.
type BlendTree2DEntry struct {
	Clip *clip.Clip
	X, Y float32
}

// BlendTree2DState blends its clips across two blend variables.
type BlendTree2DState struct {
	base
	xVar, yVar string
	entries    []BlendTree2DEntry
}

var _ State = &BlendTree2DState{}

// NewBlendTree2D creates a 2D blend tree state.
//
// Parameters:
//   - name: the state name
//   - xVar: the blend variable for the X axis
//   - yVar: the blend variable for the Y axis
//   - entries: the clips and their positions
//   - options: shared state options (speed, loop, events, GUID)
//
// Returns:
//   - *BlendTree2DState: the new state
func NewBlendTree2D(name, xVar, yVar string, entries []BlendTree2DEntry, options ...StateBuilderOption) *BlendTree2DState {
	return &BlendTree2DState{base: newBase(name, options), xVar: xVar, yVar: yVar, entries: entries}
}

// Variables returns the X and Y blend variable names.
func (s *BlendTree2DState) Variables() (string, string) {
	return s.xVar, s.yVar
}

// Entries returns the authored entries.
func (s *BlendTree2DState) Entries() []BlendTree2DEntry {
	return s.entries
}

func (s *BlendTree2DState) Kind() Kind {
	return KindBlendTree2D
}

func (s *BlendTree2DState) Instantiate(g graph.Graph, swapper clip.Swapper) (Instance, error) {
	if len(s.entries) == 0 {
		return nil, common.NewConfigurationError("state "+s.name, "2D blend tree has no entries")
	}
	for i, e := range s.entries {
		if e.Clip == nil {
			return nil, common.NewConfigurationError("state "+s.name, "entry %d has no clip", i)
		}
	}
	nodes := make([]graph.Node, len(s.entries))
	entries := make([]blendspace.Entry2D, len(s.entries))
	durations := make([]float32, len(s.entries))
	for i, e := range s.entries {
		resolved := clip.Resolve(swapper, e.Clip)
		nodes[i] = g.CreateClipNode(resolved)
		entries[i] = blendspace.Entry2D{Threshold: common.Vec2{X: e.X, Y: e.Y}, Duration: resolved.Duration}
		durations[i] = resolved.Duration
	}
	m, err := buildMixer(g, s, nodes)
	if err != nil {
		return nil, err
	}
	space, err := blendspace.NewBlendSpace2D(m.mixer, s.xVar, s.yVar, entries)
	if err != nil {
		m.Destroy()
		return nil, err
	}
	return &blendTree2DInstance{mixerInstance: m, space: space, durations: durations}, nil
}

type blendTree2DInstance struct {
	*mixerInstance
	space     blendspace.BlendSpace2D
	durations []float32
}

// Space returns the instance's blend space controller.
func (i *blendTree2DInstance) Space() blendspace.BlendSpace2D {
	return i.space
}

func (i *blendTree2DInstance) Duration() float32 {
	return i.weightedDuration(i.durations)
}

func (i *blendTree2DInstance) SetTime(t float32) {
	i.setChildTimes(t)
}

func (i *blendTree2DInstance) JumpToRelativeTime(fraction float32) {
	i.setChildTimes(fraction * i.Duration())
}

func (i *blendTree2DInstance) Consumers() []blendspace.Consumer {
	return []blendspace.Consumer{i.space}
}
