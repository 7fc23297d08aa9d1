package graph

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
)

// Graph is the pose-evaluation graph the state engine drives. It stands in for the host engine's playable
// graph: a DAG of clip and mixer nodes where every mixer input carries a weight. The state engine only
// creates, connects, weights, times and destroys nodes; it never inspects pose data.
//
// Node creation and destruction are safe for concurrent use so independent layers can be updated in parallel.
// Mutating a single node is not; each node is owned by exactly one layer.
type Graph interface {
	// CreateMixerNode creates a mixer node with inputCount empty, zero-weighted input slots.
	//
	// Parameters:
	//   - inputCount: the number of input slots
	//
	// Returns:
	//   - Node: the new mixer node
	CreateMixerNode(inputCount int) Node

	// CreateClipNode creates a leaf node playing the given clip.
	//
	// Parameters:
	//   - c: the clip to play
	//
	// Returns:
	//   - Node: the new clip node
	CreateClipNode(c *clip.Clip) Node

	// Connect attaches src as input slot of dst. The slot must exist, be empty and src must not already
	// have an output.
	//
	// Parameters:
	//   - src: the node providing the pose
	//   - dst: the mixer receiving it
	//   - slot: the input slot index on dst
	//
	// Returns:
	//   - error: an error if the connection is invalid
	Connect(src, dst Node, slot int) error

	// Disconnect detaches whatever node is connected to the given input slot of dst. The slot keeps its weight.
	// No-op if the slot is empty or out of range.
	//
	// Parameters:
	//   - dst: the mixer
	//   - slot: the input slot index
	Disconnect(dst Node, slot int)

	// Evaluate advances every node tree by deltaTime. A node's time grows by deltaTime multiplied by its own
	// speed and the speed of every node on its path to the root.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last evaluation in seconds
	Evaluate(deltaTime float32)

	// NodeCount returns the number of live nodes in the graph.
	//
	// Returns:
	//   - int: the count of nodes not yet destroyed
	NodeCount() int
}

// graph is the in-memory implementation of Graph.
type graph struct {
	mu     *sync.Mutex
	nextID uint64
	nodes  map[uint64]*node
}

var _ Graph = &graph{}

// NewGraph creates an empty in-memory Graph.
//
// Returns:
//   - Graph: the new graph
func NewGraph() Graph {
	return &graph{
		mu:     &sync.Mutex{},
		nextID: 1,
		nodes:  make(map[uint64]*node),
	}
}

func (g *graph) add(n *node) *node {
	g.mu.Lock()
	defer g.mu.Unlock()
	n.id = g.nextID
	g.nextID++
	n.g = g
	g.nodes[n.id] = n
	return n
}

func (g *graph) remove(n *node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes, n.id)
}

func (g *graph) CreateMixerNode(inputCount int) Node {
	if inputCount < 0 {
		inputCount = 0
	}
	return g.add(&node{
		mixer:  true,
		speed:  1,
		inputs: make([]input, inputCount),
	})
}

func (g *graph) CreateClipNode(c *clip.Clip) Node {
	return g.add(&node{
		clip:  c,
		speed: 1,
	})
}

func (g *graph) Connect(src, dst Node, slot int) error {
	s, ok := src.(*node)
	if !ok || !s.Valid() {
		return fmt.Errorf("graph: connect: invalid source node")
	}
	d, ok := dst.(*node)
	if !ok || !d.Valid() {
		return fmt.Errorf("graph: connect: invalid destination node")
	}
	if s == d {
		return fmt.Errorf("graph: connect: node %d cannot feed itself", s.id)
	}
	if slot < 0 || slot >= len(d.inputs) {
		return fmt.Errorf("graph: connect: slot %d out of range [0, %d) on node %d", slot, len(d.inputs), d.id)
	}
	if d.inputs[slot].node != nil {
		return fmt.Errorf("graph: connect: slot %d on node %d is occupied", slot, d.id)
	}
	if s.output != nil {
		return fmt.Errorf("graph: connect: node %d already has an output", s.id)
	}
	d.inputs[slot].node = s
	s.output = d
	return nil
}

func (g *graph) Disconnect(dst Node, slot int) {
	d, ok := dst.(*node)
	if !ok || slot < 0 || slot >= len(d.inputs) {
		return
	}
	if src := d.inputs[slot].node; src != nil {
		src.output = nil
		d.inputs[slot].node = nil
	}
}

func (g *graph) Evaluate(deltaTime float32) {
	g.mu.Lock()
	roots := make([]*node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.output == nil {
			roots = append(roots, n)
		}
	}
	g.mu.Unlock()

	for _, n := range roots {
		n.advance(deltaTime)
	}
}

func (g *graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}
