package state

import (
	"math"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// SequenceState plays its clips back to back. A looping sequence wraps around to the first clip.
type SequenceState struct {
	base
	clips []*clip.Clip
}

var _ State = &SequenceState{}

// NewSequence creates a state playing clips in order.
//
// Parameters:
//   - name: the state name
//   - clips: the clips in playback order
//   - options: shared state options (speed, loop, events, GUID)
//
// Returns:
//   - *SequenceState: the new state
func NewSequence(name string, clips []*clip.Clip, options ...StateBuilderOption) *SequenceState {
	return &SequenceState{base: newBase(name, options), clips: clips}
}

// Clips returns the authored clips in playback order.
func (s *SequenceState) Clips() []*clip.Clip {
	return s.clips
}

func (s *SequenceState) Kind() Kind {
	return KindSequence
}

func (s *SequenceState) Instantiate(g graph.Graph, swapper clip.Swapper) (Instance, error) {
	if len(s.clips) == 0 {
		return nil, common.NewConfigurationError("state "+s.name, "sequence state has no clips")
	}
	if err := checkClips(s.name, s.clips); err != nil {
		return nil, err
	}
	nodes := make([]graph.Node, len(s.clips))
	starts := make([]float32, len(s.clips))
	var total float32
	for i, c := range s.clips {
		resolved := clip.Resolve(swapper, c)
		nodes[i] = g.CreateClipNode(resolved)
		starts[i] = total
		total += resolved.Duration
	}
	m, err := buildMixer(g, s, nodes)
	if err != nil {
		return nil, err
	}
	inst := &sequenceInstance{mixerInstance: m, loop: s.loop, starts: starts, total: total, current: -1}
	inst.Progress()
	return inst, nil
}

type sequenceInstance struct {
	*mixerInstance
	loop    bool
	starts  []float32
	total   float32
	current int
}

// Current returns the index of the clip currently playing.
func (i *sequenceInstance) Current() int {
	return i.current
}

func (i *sequenceInstance) Duration() float32 {
	return i.total
}

func (i *sequenceInstance) OnWillStartPlaying() {
	i.SetTime(0)
}

func (i *sequenceInstance) SetTime(t float32) {
	i.mixer.SetTime(t)
	i.Progress()
}

func (i *sequenceInstance) JumpToRelativeTime(fraction float32) {
	i.SetTime(fraction * i.total)
}

func (i *sequenceInstance) Progress() {
	local := i.mixer.Time()
	if i.loop && i.total > 0 {
		local = float32(math.Mod(float64(local), float64(i.total)))
		if local < 0 {
			local += i.total
		}
	} else {
		local = common.Clamp(local, 0, i.total)
	}

	idx := len(i.starts) - 1
	for k := 1; k < len(i.starts); k++ {
		if local < i.starts[k] {
			idx = k - 1
			break
		}
	}

	if idx != i.current {
		for slot := range i.children {
			if slot == idx {
				i.mixer.SetInputWeight(slot, 1)
			} else {
				i.mixer.SetInputWeight(slot, 0)
			}
		}
		i.current = idx
	}
	i.children[idx].SetTime(local - i.starts[idx])
}
