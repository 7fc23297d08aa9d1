package graph

import (
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
)

// Node is a single vertex of a Graph: either a clip leaf or a mixer with weighted inputs.
type Node interface {
	// ID returns the node's graph-unique identifier.
	ID() uint64

	// Valid reports whether the node is still alive (not destroyed).
	Valid() bool

	// Clip returns the clip a clip node plays, or nil for mixers.
	Clip() *clip.Clip

	// InputCount returns the number of input slots.
	InputCount() int

	// SetInputCount grows or shrinks the input slot list. Shrinking disconnects the dropped slots.
	//
	// Parameters:
	//   - n: the new slot count
	SetInputCount(n int)

	// Input returns the node connected at slot, or nil when empty or out of range.
	//
	// Parameters:
	//   - slot: the input slot index
	//
	// Returns:
	//   - Node: the connected node or nil
	Input(slot int) Node

	// Output returns the node this node feeds into, or nil for roots.
	Output() Node

	// SetInputWeight sets the blend weight of an input slot. No-op when out of range.
	//
	// Parameters:
	//   - slot: the input slot index
	//   - w: the weight
	SetInputWeight(slot int, w float32)

	// InputWeight returns the blend weight of an input slot, 0 when out of range.
	//
	// Parameters:
	//   - slot: the input slot index
	//
	// Returns:
	//   - float32: the weight
	InputWeight(slot int) float32

	// Time returns the node's local playback time in seconds.
	Time() float32

	// SetTime sets the node's local playback time in seconds.
	//
	// Parameters:
	//   - t: the time in seconds
	SetTime(t float32)

	// Speed returns the node's playback speed multiplier.
	Speed() float32

	// SetSpeed sets the node's playback speed multiplier.
	//
	// Parameters:
	//   - s: the speed multiplier (1.0 = normal)
	SetSpeed(s float32)

	// Destroy disconnects the node from its output and inputs and removes it from the graph.
	// Inputs are not destroyed. Calling Destroy twice is a no-op.
	Destroy()
}

type input struct {
	node   *node
	weight float32
}

// node is the in-memory implementation of Node.
type node struct {
	g      *graph
	id     uint64
	clip   *clip.Clip
	mixer  bool
	dead   bool
	time   float32
	speed  float32
	inputs []input
	output *node
}

var _ Node = &node{}

func (n *node) ID() uint64 {
	return n.id
}

func (n *node) Valid() bool {
	return n != nil && !n.dead
}

func (n *node) Clip() *clip.Clip {
	return n.clip
}

func (n *node) InputCount() int {
	return len(n.inputs)
}

func (n *node) SetInputCount(count int) {
	if count < 0 {
		count = 0
	}
	if count < len(n.inputs) {
		for i := count; i < len(n.inputs); i++ {
			if src := n.inputs[i].node; src != nil {
				src.output = nil
			}
		}
		n.inputs = n.inputs[:count]
		return
	}
	for len(n.inputs) < count {
		n.inputs = append(n.inputs, input{})
	}
}

func (n *node) Input(slot int) Node {
	if slot < 0 || slot >= len(n.inputs) || n.inputs[slot].node == nil {
		return nil
	}
	return n.inputs[slot].node
}

func (n *node) Output() Node {
	if n.output == nil {
		return nil
	}
	return n.output
}

func (n *node) SetInputWeight(slot int, w float32) {
	if slot < 0 || slot >= len(n.inputs) {
		return
	}
	n.inputs[slot].weight = w
}

func (n *node) InputWeight(slot int) float32 {
	if slot < 0 || slot >= len(n.inputs) {
		return 0
	}
	return n.inputs[slot].weight
}

func (n *node) Time() float32 {
	return n.time
}

func (n *node) SetTime(t float32) {
	n.time = t
}

func (n *node) Speed() float32 {
	return n.speed
}

func (n *node) SetSpeed(s float32) {
	n.speed = s
}

func (n *node) Destroy() {
	if n.dead {
		return
	}
	if out := n.output; out != nil {
		for i := range out.inputs {
			if out.inputs[i].node == n {
				out.inputs[i].node = nil
			}
		}
		n.output = nil
	}
	for i := range n.inputs {
		if src := n.inputs[i].node; src != nil {
			src.output = nil
			n.inputs[i].node = nil
		}
	}
	n.dead = true
	n.g.remove(n)
}

// advance moves the node and its inputs forward by dt scaled by this node's speed.
func (n *node) advance(dt float32) {
	scaled := dt * n.speed
	n.time += scaled
	for i := range n.inputs {
		if src := n.inputs[i].node; src != nil {
			src.advance(scaled)
		}
	}
}
