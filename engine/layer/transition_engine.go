package layer

import (
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
)

// blendState is the in-flight transition. The zero value is Idle.
type blendState struct {
	active bool
	data   state.TransitionData
	start  float32
	target int

	// hold is how long a clip transition lasts: the length of the clip actually playing, after swapping.
	hold float32

	// snapshot holds the weight of every mixer slot when the blend started. A non-zero entry marks the slot
	// as active for the blend. Nil for clip transitions.
	snapshot []float32
}

func (l *layer) Play(index int) state.State {
	if !l.checkIndex("play", index) {
		return nil
	}
	return l.play(index, l.defaultFor(l.current, index), true)
}

func (l *layer) PlayByName(name string) state.State {
	index := l.StateIndex(name)
	if index < 0 {
		l.logger.Error("layer: unknown state", "op", "play", "layer", l.name, "state", name)
		return nil
	}
	return l.Play(index)
}

func (l *layer) PlayWith(index int, data state.TransitionData) state.State {
	if !l.checkIndex("play", index) {
		return nil
	}
	return l.play(index, data, true)
}

func (l *layer) PlayNamed(index int, transitionName string) state.State {
	if !l.checkIndex("play", index) {
		return nil
	}
	data, ok := l.namedFor(l.current, index, transitionName)
	if !ok {
		l.logger.Warn("layer: transition lookup miss", "layer", l.name, "error", &common.LookupMissError{
			Layer: l.name,
			From:  l.stateName(l.current),
			To:    l.states[index].Name(),
			Name:  transitionName,
		})
		data = l.defaultFor(l.current, index)
	}
	return l.play(index, data, true)
}

func (l *layer) SnapTo(index int) state.State {
	if !l.checkIndex("snap_to", index) {
		return nil
	}
	return l.play(index, state.Instant(), true)
}

func (l *layer) IsTransitioning() bool {
	return l.blend.active
}

func (l *layer) TransitionProgress() float32 {
	if !l.blend.active {
		return 1
	}
	d := l.blend.data.Duration
	if l.blend.data.Type == state.TransitionClip {
		d = l.blend.hold
	}
	if d <= 0 {
		return 1
	}
	return common.Clamp01((l.clock - l.blend.start) / d)
}

// play starts a transition into target. Every manual call clears the queue; queued instructions firing
// from drainQueue do not.
func (l *layer) play(target int, data state.TransitionData, clearQueue bool) state.State {
	if clearQueue {
		l.queue = nil
	}
	if err := data.Validate(); err != nil {
		l.logger.Error("layer: invalid transition",
			"op", "play",
			"layer", l.name,
			"state", l.states[target].Name(),
			"index", target,
			"error", err,
		)
		return nil
	}

	label := data.Type.String()
	if data.IsInstant() {
		label = "instant"
	}
	l.metrics.TransitionStarted(l.name, label)

	switch {
	case data.IsInstant():
		l.snap(target)
	case data.Type == state.TransitionClip:
		l.startClipTransition(target, data)
	default:
		l.startBlend(target, data)
	}
	return l.states[target]
}

// snap makes target the only node at weight 1, playing from time 0, and drops every transient.
func (l *layer) snap(target int) {
	l.destroyTransients()
	for i := range l.instances {
		l.mixer.SetInputWeight(i, 0)
	}
	l.restart(target)
	l.mixer.SetInputWeight(target, 1)
	l.current = target
	l.blend = blendState{}
}

// restart rewinds the permanent instance of index to the start of a fresh playthrough.
func (l *layer) restart(index int) {
	inst := l.instances[index]
	inst.OnWillStartPlaying()
	inst.SetTime(0)
	l.lastEventTime[index] = -1
}

func (l *layer) startBlend(target int, data state.TransitionData) {
	weight := l.mixer.InputWeight(target)
	switch {
	case weight <= 0:
		l.restart(target)
	case !l.states[target].Loops():
		l.retrigger(target)
	}

	l.blend = blendState{
		active:   true,
		data:     data,
		start:    l.clock,
		target:   target,
		snapshot: l.NodeWeights(),
	}
	l.current = target
}

// retrigger moves the playthrough in progress of a non-looping state onto a duplicate transient node so it
// can fade out, and rewinds the permanent slot for the new blend.
func (l *layer) retrigger(target int) {
	old := l.instances[target]
	dup, err := l.states[target].Instantiate(l.g, l.swapper)
	if err != nil {
		// The state instantiated fine at init; a failure here only loses the fade-out.
		l.logger.Error("layer: duplicate state failed", "layer", l.name, "state", l.states[target].Name(), "error", err)
		l.restart(target)
		return
	}
	state.CarryOver(old, dup)
	dup.SetTime(old.Time())
	l.addTransient(transient{inst: dup, node: dup.Node(), stateIndex: target}, l.mixer.InputWeight(target))
	l.mixer.SetInputWeight(target, 0)
	l.restart(target)
}

func (l *layer) startClipTransition(target int, data state.TransitionData) {
	l.destroyTransients()
	resolved := clip.Resolve(l.swapper, data.Clip)
	node := l.g.CreateClipNode(resolved)
	for i := range l.instances {
		l.mixer.SetInputWeight(i, 0)
	}
	l.addTransient(transient{node: node, stateIndex: -1}, 1)
	l.blend = blendState{
		active: true,
		data:   data,
		start:  l.clock,
		target: target,
		hold:   resolved.Duration,
	}
	l.current = target
}

// progressTransition advances the in-flight transition to the layer clock.
func (l *layer) progressTransition() {
	b := &l.blend
	elapsed := l.clock - b.start

	if b.data.Type == state.TransitionClip {
		if elapsed >= b.hold {
			l.snap(b.target)
			l.checkConsistency()
		}
		return
	}

	lerp := common.Clamp01(elapsed / b.data.Duration)
	if lerp >= 1 {
		l.completeBlend()
		return
	}

	p := lerp
	if b.data.Type == state.TransitionCurve {
		p = b.data.Curve.Evaluate(lerp)
	}
	for slot, from := range b.snapshot {
		if from == 0 && slot != b.target {
			continue
		}
		var to float32
		if slot == b.target {
			to = 1
		}
		l.mixer.SetInputWeight(slot, common.Lerp(from, to, p))
	}
	l.collectTransients()
}

func (l *layer) completeBlend() {
	target := l.blend.target
	l.blend = blendState{}
	l.destroyTransients()
	for i := range l.instances {
		l.mixer.SetInputWeight(i, 0)
	}
	l.mixer.SetInputWeight(target, 1)
	l.checkConsistency()
}

// checkConsistency panics when every transient has been collected but the mixer no longer has exactly one
// slot per state.
func (l *layer) checkConsistency() {
	if len(l.transients) > 0 {
		return
	}
	if l.mixer.InputCount() != len(l.states) || len(l.instances) != len(l.states) {
		panic(&common.ConsistencyError{
			Layer:  l.name,
			Nodes:  l.mixer.InputCount(),
			States: len(l.states),
		})
	}
}
