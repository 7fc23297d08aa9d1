package state

import (
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/blendspace"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// SingleClipState plays one clip.
type SingleClipState struct {
	base
	clip *clip.Clip
}

var _ State = &SingleClipState{}

// NewSingleClip creates a state that plays c.
//
// Parameters:
//   - name: the state name
//   - c: the clip to play
//   - options: shared state options (speed, loop, events, GUID)
//
// Returns:
//   - *SingleClipState: the new state
func NewSingleClip(name string, c *clip.Clip, options ...StateBuilderOption) *SingleClipState {
	return &SingleClipState{base: newBase(name, options), clip: c}
}

// Clip returns the authored clip.
func (s *SingleClipState) Clip() *clip.Clip {
	return s.clip
}

// SetClip hot-swaps the authored clip. Nodes built earlier keep the old clip until the layer rebuilds them.
//
// Parameters:
//   - c: the new clip
func (s *SingleClipState) SetClip(c *clip.Clip) {
	s.clip = c
}

func (s *SingleClipState) Kind() Kind {
	return KindSingleClip
}

func (s *SingleClipState) Instantiate(g graph.Graph, swapper clip.Swapper) (Instance, error) {
	if s.clip == nil {
		return nil, common.NewConfigurationError("state "+s.name, "single clip state has no clip")
	}
	c := clip.Resolve(swapper, s.clip)
	n := g.CreateClipNode(c)
	n.SetSpeed(s.speed)
	return &singleClipInstance{state: s, node: n}, nil
}

type singleClipInstance struct {
	state *SingleClipState
	node  graph.Node
}

func (i *singleClipInstance) State() State {
	return i.state
}

func (i *singleClipInstance) Node() graph.Node {
	return i.node
}

func (i *singleClipInstance) Duration() float32 {
	if c := i.node.Clip(); c != nil {
		return c.Duration
	}
	return 0
}

func (i *singleClipInstance) Time() float32 {
	return i.node.Time()
}

func (i *singleClipInstance) SetTime(t float32) {
	i.node.SetTime(t)
}

func (i *singleClipInstance) OnWillStartPlaying() {}

func (i *singleClipInstance) JumpToRelativeTime(fraction float32) {
	i.node.SetTime(fraction * i.Duration())
}

func (i *singleClipInstance) Progress() {}

func (i *singleClipInstance) Consumers() []blendspace.Consumer {
	return nil
}

func (i *singleClipInstance) Destroy() {
	i.node.Destroy()
}
