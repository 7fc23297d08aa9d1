package layer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
)

// transient is an overflow mixer slot: a retriggered non-looping state fading out, or a transition clip.
type transient struct {
	// inst is nil for transition clips.
	inst state.Instance
	node graph.Node
	// stateIndex is the state the node duplicates, -1 for transition clips.
	stateIndex int
}

// addTransient appends node to the tail of the mixer at the given weight.
func (l *layer) addTransient(t transient, weight float32) {
	slot := l.mixer.InputCount()
	l.mixer.SetInputCount(slot + 1)
	if err := l.g.Connect(t.node, l.mixer, slot); err != nil {
		panic(fmt.Sprintf("layer %q: connect transient: %v", l.name, err))
	}
	l.mixer.SetInputWeight(slot, weight)
	if t.inst != nil {
		l.registerConsumers(t.inst)
	}
	l.transients = append(l.transients, t)
	l.metrics.TransientCreated(l.name)
}

// removeTransient destroys the k-th transient and shifts every later slot down by one.
func (l *layer) removeTransient(k int) {
	t := l.transients[k]
	slot := len(l.instances) + k
	count := l.mixer.InputCount()

	l.g.Disconnect(l.mixer, slot)
	for s := slot + 1; s < count; s++ {
		l.moveSlot(s, s-1)
	}
	l.mixer.SetInputCount(count - 1)
	if l.blend.snapshot != nil && slot < len(l.blend.snapshot) {
		l.blend.snapshot = append(l.blend.snapshot[:slot], l.blend.snapshot[slot+1:]...)
	}

	if t.inst != nil {
		l.unregisterConsumers(t.inst)
		t.inst.Destroy()
	} else {
		t.node.Destroy()
	}
	l.transients = append(l.transients[:k], l.transients[k+1:]...)
	l.metrics.TransientCollected(l.name)
}

// collectTransients destroys every transient whose weight dropped below transientCutoff, then checks that the
// mixer is back to one slot per state once the last one is gone.
func (l *layer) collectTransients() {
	if len(l.transients) == 0 {
		return
	}
	base := len(l.instances)
	for k := len(l.transients) - 1; k >= 0; k-- {
		if l.mixer.InputWeight(base+k) < transientCutoff {
			l.removeTransient(k)
		}
	}
	l.checkConsistency()
}

func (l *layer) destroyTransients() {
	for k := len(l.transients) - 1; k >= 0; k-- {
		l.removeTransient(k)
	}
}

// moveSlot reconnects the node at slot from into the empty slot to, carrying its weight.
func (l *layer) moveSlot(from, to int) {
	n := l.mixer.Input(from)
	w := l.mixer.InputWeight(from)
	l.g.Disconnect(l.mixer, from)
	l.mixer.SetInputWeight(from, 0)
	if n != nil {
		if err := l.g.Connect(n, l.mixer, to); err != nil {
			panic(fmt.Sprintf("layer %q: move slot %d to %d: %v", l.name, from, to, err))
		}
	}
	l.mixer.SetInputWeight(to, w)
}
