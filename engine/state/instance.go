package state

import (
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/blendspace"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// Instance is the runtime node tree generated from a State. A layer holds one permanent instance per state and
// may hold extra transient instances of the same state while a retriggered non-looping state fades out.
type Instance interface {
	// State returns the authored state this instance was built from.
	State() State

	// Node returns the root node to connect into the layer mixer.
	Node() graph.Node

	// Duration returns the length of one playthrough in node time. It can depend on runtime choices (the
	// random clip picked, the current blend tree weights).
	//
	// Returns:
	//   - float32: the duration in seconds
	Duration() float32

	// Time returns the current playback time of the root node.
	Time() float32

	// SetTime moves playback to t seconds, keeping child nodes in step with the root.
	//
	// Parameters:
	//   - t: the playback time in seconds
	SetTime(t float32)

	// OnWillStartPlaying is called right before the state starts playing from rest, so variants can pick a
	// random clip or rewind a sequence.
	OnWillStartPlaying()

	// JumpToRelativeTime moves playback to a fraction of Duration.
	//
	// Parameters:
	//   - fraction: 0 is the start, 1 the end
	JumpToRelativeTime(fraction float32)

	// Progress advances internal sub-selection for the current time. Sequences switch clips here; other
	// variants do nothing.
	Progress()

	// Consumers returns the blend space controllers of this instance, to be registered with the layer's
	// blend variable aggregator.
	Consumers() []blendspace.Consumer

	// Destroy destroys every node this instance created.
	Destroy()
}

var (
	_ Instance = &singleClipInstance{}
	_ Instance = &randomClipInstance{}
	_ Instance = &sequenceInstance{}
	_ Instance = &blendTree1DInstance{}
	_ Instance = &blendTree2DInstance{}
)

// mixerInstance holds what every mixer-rooted instance variant shares: the root mixer and its clip children.
type mixerInstance struct {
	state    State
	mixer    graph.Node
	children []graph.Node
}

func (m *mixerInstance) State() State {
	return m.state
}

func (m *mixerInstance) Node() graph.Node {
	return m.mixer
}

func (m *mixerInstance) Time() float32 {
	return m.mixer.Time()
}

func (m *mixerInstance) setChildTimes(t float32) {
	m.mixer.SetTime(t)
	for _, c := range m.children {
		c.SetTime(t * c.Speed())
	}
}

func (m *mixerInstance) Progress() {}

func (m *mixerInstance) OnWillStartPlaying() {}

func (m *mixerInstance) Consumers() []blendspace.Consumer {
	return nil
}

func (m *mixerInstance) Destroy() {
	for _, c := range m.children {
		c.Destroy()
	}
	m.mixer.Destroy()
}

// weightedDuration is the clip durations weighted by the mixer's input weights.
func (m *mixerInstance) weightedDuration(durations []float32) float32 {
	var d float32
	for i, dur := range durations {
		d += m.mixer.InputWeight(i) * dur
	}
	return d
}

// checkClips rejects nil clips before any node is created, so a failed Instantiate leaves the graph untouched.
func checkClips(stateName string, clips []*clip.Clip) error {
	for i, c := range clips {
		if c == nil {
			return common.NewConfigurationError("state "+stateName, "clip %d is nil", i)
		}
	}
	return nil
}

// buildMixer creates a mixer with one clip child per clip, connected in order.
func buildMixer(g graph.Graph, st State, clips []graph.Node) (*mixerInstance, error) {
	mixer := g.CreateMixerNode(len(clips))
	mixer.SetSpeed(st.Speed())
	for i, c := range clips {
		if err := g.Connect(c, mixer, i); err != nil {
			for _, n := range clips {
				n.Destroy()
			}
			mixer.Destroy()
			return nil, err
		}
	}
	return &mixerInstance{state: st, mixer: mixer, children: clips}, nil
}
