package state

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
)

// RandomClipState plays one of several clips, picked uniformly each time the state starts playing.
type RandomClipState struct {
	base
	clips []*clip.Clip
	rng   *rand.Rand
}

var _ State = &RandomClipState{}

// NewRandomClip creates a state picking one of clips at random on every start.
// A non-zero seed makes the picks reproducible.
//
// Parameters:
//   - name: the state name
//   - clips: the candidate clips
//   - seed: the random seed, 0 for a random one
//   - options: shared state options (speed, loop, events, GUID)
//
// Returns:
//   - *RandomClipState: the new state
func NewRandomClip(name string, clips []*clip.Clip, seed uint64, options ...StateBuilderOption) *RandomClipState {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomClipState{
		base:  newBase(name, options),
		clips: clips,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Clips returns the authored candidate clips.
func (s *RandomClipState) Clips() []*clip.Clip {
	return s.clips
}

func (s *RandomClipState) Kind() Kind {
	return KindRandomClip
}

func (s *RandomClipState) Instantiate(g graph.Graph, swapper clip.Swapper) (Instance, error) {
	if len(s.clips) == 0 {
		return nil, common.NewConfigurationError("state "+s.name, "random clip state has no clips")
	}
	if err := checkClips(s.name, s.clips); err != nil {
		return nil, err
	}
	nodes := make([]graph.Node, len(s.clips))
	durations := make([]float32, len(s.clips))
	for i, c := range s.clips {
		resolved := clip.Resolve(swapper, c)
		nodes[i] = g.CreateClipNode(resolved)
		durations[i] = resolved.Duration
	}
	m, err := buildMixer(g, s, nodes)
	if err != nil {
		return nil, err
	}
	inst := &randomClipInstance{mixerInstance: m, state: s, durations: durations}
	inst.choose(0)
	return inst, nil
}

type randomClipInstance struct {
	*mixerInstance
	state     *RandomClipState
	durations []float32
	chosen    int
}

func (i *randomClipInstance) choose(idx int) {
	i.chosen = idx
	for slot := range i.children {
		if slot == idx {
			i.mixer.SetInputWeight(slot, 1)
		} else {
			i.mixer.SetInputWeight(slot, 0)
		}
	}
}

// CarryOver copies the runtime sub-selection of from onto to, so an instance rebuilt from the same state (after a
// clip swap, or as a retrigger duplicate) keeps playing the same clip. Only random clip instances carry a
// selection; sequences and blend trees derive theirs from time and blend variables.
//
// Parameters:
//   - from: the instance being replaced
//   - to: the freshly built instance of the same state
func CarryOver(from, to Instance) {
	src, ok := from.(*randomClipInstance)
	if !ok {
		return
	}
	dst, ok := to.(*randomClipInstance)
	if !ok || src.chosen >= len(dst.children) {
		return
	}
	dst.choose(src.chosen)
}

// Chosen returns the index of the clip currently playing.
func (i *randomClipInstance) Chosen() int {
	return i.chosen
}

func (i *randomClipInstance) OnWillStartPlaying() {
	i.choose(i.state.rng.IntN(len(i.children)))
	i.setChildTimes(0)
}

func (i *randomClipInstance) Duration() float32 {
	return i.durations[i.chosen]
}

func (i *randomClipInstance) SetTime(t float32) {
	i.setChildTimes(t)
}

func (i *randomClipInstance) JumpToRelativeTime(fraction float32) {
	i.setChildTimes(fraction * i.Duration())
}
