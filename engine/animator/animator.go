package animator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/layer"
	"github.com/Carmen-Shannon/oxy-blend/engine/metrics"
	"github.com/Carmen-Shannon/oxy-blend/engine/profiler"
	"github.com/Carmen-Shannon/oxy-blend/engine/renderer/weight_buffer"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
)

// animator is the implementation of the Animator interface.
type animator struct {
	g        graph.Graph
	root     graph.Node
	layers   []layer.Layer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	pool     worker.DynamicWorkerPool
	parallel bool
	profiler *profiler.Profiler
	weights  weight_buffer.WeightBuffer
	clock    float32
}

// Animator owns a pose graph and the ordered layers blended into its root mixer.
//
// The Animator is driven explicitly by its owner: call Update once per simulation tick. It evaluates the graph
// (advancing every node's playback time), then updates each layer, then stages GPU weight data when a
// WeightBuffer is configured. Layer masks and additive blending are the host pose graph's concern; the
// Animator only exposes a weight per layer.
type Animator interface {
	// Graph returns the pose graph all layers build their nodes in.
	Graph() graph.Graph

	// Output returns the root layer mixer.
	Output() graph.Node

	// AddLayer creates a layer in the animator's graph and attaches it. The animator's logger and metrics are
	// applied before options.
	//
	// Parameters:
	//   - name: the layer name
	//   - states: the states in index order
	//   - transitions: the authored transitions
	//   - options: layer options
	//
	// Returns:
	//   - layer.Layer: the new layer
	//   - error: an error if the layer could not be built
	AddLayer(name string, states []state.State, transitions []state.Transition, options ...layer.LayerBuilderOption) (layer.Layer, error)

	// AttachLayer connects a layer built in the animator's graph into a new root mixer slot at weight 1.
	//
	// Parameters:
	//   - l: the layer
	//
	// Returns:
	//   - int: the layer index
	//   - error: an error if the connection failed
	AttachLayer(l layer.Layer) (int, error)

	// Layer returns the layer at index, or nil when out of range.
	//
	// Parameters:
	//   - index: the layer index
	//
	// Returns:
	//   - layer.Layer: the layer or nil
	Layer(index int) layer.Layer

	// LayerByName returns the first layer with the given name, or nil.
	//
	// Parameters:
	//   - name: the layer name
	//
	// Returns:
	//   - layer.Layer: the layer or nil
	LayerByName(name string) layer.Layer

	// LayerCount returns the number of layers.
	LayerCount() int

	// SetLayerWeight sets the blend weight of the layer at index in the root mixer.
	//
	// Parameters:
	//   - index: the layer index
	//   - w: the weight, clamped to [0, 1]
	//
	// Returns:
	//   - bool: false if index is out of range
	SetLayerWeight(index int, w float32) bool

	// LayerWeight returns the blend weight of the layer at index, 0 when out of range.
	//
	// Parameters:
	//   - index: the layer index
	//
	// Returns:
	//   - float32: the weight
	LayerWeight(index int) float32

	// Play plays the named state on the layer at index with its default transition.
	//
	// Parameters:
	//   - index: the layer index
	//   - stateName: the state name
	//
	// Returns:
	//   - state.State: the played state, or nil if the call was rejected
	Play(index int, stateName string) state.State

	// SetBlendVar sets a blend variable on every layer.
	//
	// Parameters:
	//   - name: the blend variable name
	//   - value: the new value
	//
	// Returns:
	//   - int: the number of blend spaces reached across all layers
	SetBlendVar(name string, value float32) int

	// Update evaluates the graph and updates every layer by deltaTime.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	Update(deltaTime float32)

	// Clock returns the accumulated animator time in seconds.
	Clock() float32

	// StagedWriteData returns and clears the pending GPU weight writes, nil without a WeightBuffer.
	//
	// Returns:
	//   - []weight_buffer.BufferWrite: the pending writes
	StagedWriteData() []weight_buffer.BufferWrite

	// Destroy destroys every layer and the root mixer.
	Destroy()
}

var _ Animator = &animator{}

// NewAnimator creates an Animator over g. A nil graph creates a fresh in-memory one.
//
// Parameters:
//   - g: the pose graph, may be nil
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: the new animator
func NewAnimator(g graph.Graph, options ...AnimatorBuilderOption) Animator {
	if g == nil {
		g = graph.NewGraph()
	}
	a := &animator{
		g:      g,
		root:   g.CreateMixerNode(0),
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Graph() graph.Graph {
	return a.g
}

func (a *animator) Output() graph.Node {
	return a.root
}

func (a *animator) AddLayer(name string, states []state.State, transitions []state.Transition, options ...layer.LayerBuilderOption) (layer.Layer, error) {
	opts := append([]layer.LayerBuilderOption{layer.WithLogger(a.logger), layer.WithMetrics(a.metrics)}, options...)
	l, err := layer.NewLayer(a.g, name, states, transitions, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := a.AttachLayer(l); err != nil {
		l.Destroy()
		return nil, err
	}
	return l, nil
}

func (a *animator) AttachLayer(l layer.Layer) (int, error) {
	index := a.root.InputCount()
	a.root.SetInputCount(index + 1)
	if err := l.ConnectTo(a.root, index); err != nil {
		a.root.SetInputCount(index)
		return -1, fmt.Errorf("animator: attach layer %q: %w", l.Name(), err)
	}
	a.root.SetInputWeight(index, 1)
	a.layers = append(a.layers, l)
	return index, nil
}

func (a *animator) checkIndex(op string, index int) bool {
	if index >= 0 && index < len(a.layers) {
		return true
	}
	a.logger.Error("animator: layer index out of range",
		"op", op,
		"error", &common.BoundsError{Kind: "layer", Index: index, Count: len(a.layers)},
	)
	return false
}

func (a *animator) Layer(index int) layer.Layer {
	if !a.checkIndex("layer", index) {
		return nil
	}
	return a.layers[index]
}

func (a *animator) LayerByName(name string) layer.Layer {
	for _, l := range a.layers {
		if l.Name() == name {
			return l
		}
	}
	return nil
}

func (a *animator) LayerCount() int {
	return len(a.layers)
}

func (a *animator) SetLayerWeight(index int, w float32) bool {
	if !a.checkIndex("set_layer_weight", index) {
		return false
	}
	a.root.SetInputWeight(index, common.Clamp01(w))
	return true
}

func (a *animator) LayerWeight(index int) float32 {
	if !a.checkIndex("layer_weight", index) {
		return 0
	}
	return a.root.InputWeight(index)
}

func (a *animator) Play(index int, stateName string) state.State {
	if !a.checkIndex("play", index) {
		return nil
	}
	return a.layers[index].PlayByName(stateName)
}

func (a *animator) SetBlendVar(name string, value float32) int {
	reached := 0
	for _, l := range a.layers {
		reached += l.SetBlendVar(name, value)
	}
	return reached
}

func (a *animator) Update(deltaTime float32) {
	a.clock += deltaTime
	a.g.Evaluate(deltaTime)

	if a.parallel && len(a.layers) > 1 {
		// A WaitGroup is the per-frame barrier; the pool's own Wait blocks until workers idle-exit.
		var wg sync.WaitGroup
		for i, l := range a.layers {
			wg.Add(1)
			lCap := l
			a.pool.SubmitTask(worker.Task{
				ID: i,
				Do: func() (any, error) {
					defer wg.Done()
					a.updateLayer(lCap, deltaTime)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		for _, l := range a.layers {
			a.updateLayer(l, deltaTime)
		}
	}

	if a.weights != nil {
		a.stageWeights()
	}
	if a.profiler != nil {
		a.profiler.Tick()
	}
}

func (a *animator) updateLayer(l layer.Layer, deltaTime float32) {
	if a.profiler == nil {
		l.Update(deltaTime)
		return
	}
	start := time.Now()
	l.Update(deltaTime)
	a.profiler.RecordLayer(l.Name(), time.Since(start))
}

// stageWeights packs every layer's mixer slots into the weight buffer.
func (a *animator) stageWeights() {
	for i, l := range a.layers {
		weights := l.NodeWeights()
		states := l.StateCount()
		entries := make([]weight_buffer.GPUStateWeight, len(weights))
		for slot, w := range weights {
			e := weight_buffer.GPUStateWeight{Weight: w, Slot: uint32(slot)}
			if slot < states {
				e.Time = l.StateTime(slot)
				if slot == l.CurrentState() {
					e.Flags |= weight_buffer.FlagCurrent
				}
			} else {
				e.Time = l.TransientTime(slot - states)
				e.Flags |= weight_buffer.FlagTransient
			}
			entries[slot] = e
		}
		if !a.weights.StageLayer(i, entries) {
			a.logger.Warn("animator: layer does not fit the weight buffer",
				"layer", l.Name(),
				"index", i,
				"slots", len(entries),
				"stride", a.weights.Stride(),
				"layers", a.weights.LayerCount(),
			)
		}
	}
}

func (a *animator) Clock() float32 {
	return a.clock
}

func (a *animator) StagedWriteData() []weight_buffer.BufferWrite {
	if a.weights == nil {
		return nil
	}
	return a.weights.StagedWriteData()
}

func (a *animator) Destroy() {
	for _, l := range a.layers {
		l.Destroy()
	}
	a.layers = nil
	a.root.Destroy()
}
