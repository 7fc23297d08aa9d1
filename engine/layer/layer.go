package layer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/blendspace"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/metrics"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/google/uuid"
)

// transientCutoff is the weight below which a transient overflow node is destroyed.
const transientCutoff = 0.01

// layer is the implementation of the Layer interface.
//
// Mixer slots [0, len(states)) belong permanently to the states in order. Slots from len(states) on hold
// transient overflow nodes, densely packed; transients[k] sits in slot len(states)+k.
type layer struct {
	name    string
	g       graph.Graph
	mixer   graph.Node
	logger  *slog.Logger
	metrics *metrics.Metrics
	swapper clip.Swapper

	output     graph.Node
	outputSlot int

	states      []state.State
	instances   []state.Instance
	transients  []transient
	transitions []state.Transition

	nameIndex map[string]int
	guidIndex map[uuid.UUID]int
	lookup    []int

	defaultTransition state.TransitionData
	vars              blendspace.Aggregator

	queue   []queuedPlay
	clock   float32
	current int

	blend blendState

	hasEvents     bool
	lastEventTime []float32
	listeners     map[int]map[string][]func()
}

// Layer is one track of an animator: a set of states connected to a weighted mixer, the transitions between
// them, a queue of deferred state changes and the blend variables feeding its blend trees.
//
// A Layer is single-threaded. All mutation happens in its own methods, normally once per frame from Update.
// Rejected calls (out-of-range indices, invalid transitions) are logged and return a sentinel; they never panic.
type Layer interface {
	// Name returns the layer name.
	Name() string

	// Output returns the layer's mixer node, to be connected into an outer layer mixer.
	Output() graph.Node

	// ConnectTo connects the layer's mixer into parent at slot. The connection survives re-initialization.
	//
	// Parameters:
	//   - parent: the outer mixer
	//   - slot: the input slot on parent
	//
	// Returns:
	//   - error: an error if the graph rejects the connection
	ConnectTo(parent graph.Node, slot int) error

	// StateCount returns the number of states.
	StateCount() int

	// States returns the states in index order.
	States() []state.State

	// State returns the state at index, or nil when out of range.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - state.State: the state or nil
	State(index int) state.State

	// StateIndex returns the index of the state with the given name, or -1.
	//
	// Parameters:
	//   - name: the state name
	//
	// Returns:
	//   - int: the state index or -1
	StateIndex(name string) int

	// StateIndexByGUID returns the index of the state with the given GUID, or -1.
	//
	// Parameters:
	//   - id: the state GUID
	//
	// Returns:
	//   - int: the state index or -1
	StateIndexByGUID(id uuid.UUID) int

	// Play starts playing the state at index using the default transition authored from the current state,
	// or the layer's fallback transition when there is none. Clears the queue.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - state.State: the played state, or nil if the call was rejected
	Play(index int) state.State

	// PlayByName is Play for the state with the given name.
	//
	// Parameters:
	//   - name: the state name
	//
	// Returns:
	//   - state.State: the played state, or nil if the call was rejected
	PlayByName(name string) state.State

	// PlayWith starts playing the state at index using an explicit transition. Clears the queue.
	//
	// Parameters:
	//   - index: the state index
	//   - data: the transition to run
	//
	// Returns:
	//   - state.State: the played state, or nil if the call was rejected
	PlayWith(index int, data state.TransitionData) state.State

	// PlayNamed starts playing the state at index using the transition with the given name from the current
	// state. An unknown name is logged as a lookup miss and the default transition is used. Clears the queue.
	//
	// Parameters:
	//   - index: the state index
	//   - transitionName: the authored transition name
	//
	// Returns:
	//   - state.State: the played state, or nil if the call was rejected
	PlayNamed(index int, transitionName string) state.State

	// SnapTo instantly plays the state at index from time 0. Clears the queue.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - state.State: the played state, or nil if the call was rejected
	SnapTo(index int) state.State

	// QueueStateChange queues a deferred Play of the state at index, using the default transition when it fires.
	//
	// Parameters:
	//   - index: the state index
	//   - instruction: when to fire
	//
	// Returns:
	//   - bool: false if the call was rejected
	QueueStateChange(index int, instruction Instruction) bool

	// QueueStateChangeWith queues a deferred PlayWith of the state at index.
	//
	// Parameters:
	//   - index: the state index
	//   - instruction: when to fire
	//   - data: the transition to run when it fires
	//
	// Returns:
	//   - bool: false if the call was rejected
	QueueStateChangeWith(index int, instruction Instruction, data state.TransitionData) bool

	// ClearQueue drops every queued instruction.
	ClearQueue()

	// QueuedCount returns the number of queued instructions.
	QueuedCount() int

	// Update advances the layer by deltaTime. In order: sequence progression, event firing, transition
	// progression, queue draining, blend space recompute.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	Update(deltaTime float32)

	// Clock returns the accumulated layer time in seconds.
	Clock() float32

	// CurrentState returns the index of the most recently played state, or -1 before any state exists.
	CurrentState() int

	// IsTransitioning reports whether a timed or clip transition is in flight.
	IsTransitioning() bool

	// TransitionProgress returns the raw progress of the in-flight transition in [0, 1], or 1 when idle.
	TransitionProgress() float32

	// Weight returns the weight of the state at index, 0 when out of range.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - float32: the weight
	Weight(index int) float32

	// Weights returns the weights of the state slots in index order.
	Weights() []float32

	// NodeWeights returns the weights of every mixer slot, transient slots included.
	NodeWeights() []float32

	// NodeCount returns the number of mixer slots, transient slots included.
	NodeCount() int

	// TransientCount returns the number of transient overflow nodes.
	TransientCount() int

	// TransientTime returns the playback time of the k-th transient node, 0 when out of range.
	//
	// Parameters:
	//   - k: the transient index, 0 for the first slot after the states
	//
	// Returns:
	//   - float32: the playback time in seconds
	TransientTime(k int) float32

	// IsPlaying reports whether the state at index has a non-zero weight.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - bool: true if the state contributes to the pose
	IsPlaying(index int) bool

	// StateTime returns the playback time of the state at index, 0 when out of range.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - float32: the playback time in seconds
	StateTime(index int) float32

	// StateDuration returns the current duration of the state at index, 0 when out of range.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - float32: the duration in seconds
	StateDuration(index int) float32

	// NormalizedTime returns StateTime divided by the state's duration, 0 when the duration is 0.
	//
	// Parameters:
	//   - index: the state index
	//
	// Returns:
	//   - float32: the normalized time, above 1 for non-looping states that finished
	NormalizedTime(index int) float32

	// AddState adds a state at runtime and returns its index. Adding to an empty layer re-initializes it.
	//
	// Parameters:
	//   - s: the state to add
	//
	// Returns:
	//   - int: the new state index, or -1 on failure
	//   - error: the reason for failure
	AddState(s state.State) (int, error)

	// AddTransition adds a transition and rebuilds the lookup.
	//
	// Parameters:
	//   - t: the transition
	//
	// Returns:
	//   - error: a ConfigurationError if the transition data is invalid
	AddTransition(t state.Transition) error

	// RenameState renames the state at index and rebuilds the name index.
	//
	// Parameters:
	//   - index: the state index
	//   - name: the new name
	//
	// Returns:
	//   - bool: false if index is out of range
	RenameState(index int, name string) bool

	// SetBlendVar sets a blend variable and forwards it to every blend tree reading it.
	//
	// Parameters:
	//   - name: the blend variable name
	//   - value: the new value
	//
	// Returns:
	//   - int: the number of blend spaces reached
	SetBlendVar(name string, value float32) int

	// BlendVar returns the current value of a blend variable.
	//
	// Parameters:
	//   - name: the blend variable name
	//
	// Returns:
	//   - float32: the value
	//   - bool: whether it was ever set
	BlendVar(name string) (float32, bool)

	// BlendVarNames returns every blend variable known to the layer.
	BlendVarNames() []string

	// RegisterEventListener registers fn to be called when playback of the state at index crosses the event
	// with the given name.
	//
	// Parameters:
	//   - index: the state index
	//   - eventName: the event name
	//   - fn: the callback
	//
	// Returns:
	//   - bool: false if the index is out of range or the state has no such event
	RegisterEventListener(index int, eventName string, fn func()) bool

	// SetClipSwapper replaces the clip substitution provider and rebuilds every state node, keeping weights and
	// times.
	//
	// Parameters:
	//   - s: the new swapper, nil to restore authored clips
	SetClipSwapper(s clip.Swapper)

	// Destroy destroys every node the layer owns.
	Destroy()
}

var _ Layer = &layer{}

// NewLayer creates a layer over the given states and transitions and instantiates every state in g.
// The first state starts playing at full weight.
//
// Parameters:
//   - g: the graph to build nodes in
//   - name: the layer name
//   - states: the states in index order
//   - transitions: the authored transitions
//   - options: variadic list of LayerBuilderOption functions to configure the Layer
//
// Returns:
//   - Layer: the layer
//   - error: a ConfigurationError if a state or transition is invalid
func NewLayer(g graph.Graph, name string, states []state.State, transitions []state.Transition, options ...LayerBuilderOption) (Layer, error) {
	if g == nil {
		return nil, common.NewConfigurationError("layer "+name, "graph is nil")
	}
	l := &layer{
		name:              name,
		g:                 g,
		logger:            slog.Default(),
		states:            append([]state.State(nil), states...),
		defaultTransition: state.Instant(),
		vars:              blendspace.NewAggregator(),
		current:           -1,
		listeners:         make(map[int]map[string][]func()),
	}
	for _, opt := range options {
		opt(l)
	}
	for i, s := range l.states {
		if s == nil {
			return nil, common.NewConfigurationError("layer "+name, "state %d is nil", i)
		}
	}
	if err := l.defaultTransition.Validate(); err != nil {
		return nil, fmt.Errorf("layer %q: default transition: %w", name, err)
	}
	for i, t := range transitions {
		if err := l.validateTransition(t); err != nil {
			return nil, fmt.Errorf("layer %q: transition %d: %w", name, i, err)
		}
	}
	l.transitions = append([]state.Transition(nil), transitions...)
	if err := l.initialize(); err != nil {
		return nil, err
	}
	return l, nil
}

// initialize (re)builds the mixer and every permanent state node from scratch.
func (l *layer) initialize() error {
	l.teardown()

	n := len(l.states)
	mixer := l.g.CreateMixerNode(n)
	instances := make([]state.Instance, 0, n)
	for i, s := range l.states {
		inst, err := s.Instantiate(l.g, l.swapper)
		if err == nil {
			err = l.g.Connect(inst.Node(), mixer, i)
		}
		if err != nil {
			for _, built := range instances {
				l.unregisterConsumers(built)
				built.Destroy()
			}
			if inst != nil {
				inst.Destroy()
			}
			mixer.Destroy()
			return fmt.Errorf("layer %q: state %q: %w", l.name, s.Name(), err)
		}
		mixer.SetInputWeight(i, 0)
		l.registerConsumers(inst)
		instances = append(instances, inst)
	}
	l.mixer = mixer
	l.instances = instances
	l.transients = nil
	l.blend = blendState{}
	l.queue = nil
	l.lastEventTime = make([]float32, n)
	for i := range l.lastEventTime {
		l.lastEventTime[i] = -1
	}

	if l.output != nil {
		if err := l.g.Connect(l.mixer, l.output, l.outputSlot); err != nil {
			return fmt.Errorf("layer %q: reconnect output: %w", l.name, err)
		}
	}

	l.rebuildIndex()
	l.rebuildLookup()
	l.refreshHasEvents()

	l.current = -1
	if n > 0 {
		l.current = 0
		l.instances[0].OnWillStartPlaying()
		l.instances[0].SetTime(0)
		l.mixer.SetInputWeight(0, 1)
	}
	return nil
}

// teardown destroys the mixer and every node hanging off it.
func (l *layer) teardown() {
	if l.mixer == nil {
		return
	}
	for len(l.transients) > 0 {
		l.removeTransient(len(l.transients) - 1)
	}
	for _, inst := range l.instances {
		l.unregisterConsumers(inst)
		inst.Destroy()
	}
	l.instances = nil
	l.mixer.Destroy()
	l.mixer = nil
}

func (l *layer) registerConsumers(inst state.Instance) {
	for _, c := range inst.Consumers() {
		l.vars.Register(c)
	}
}

func (l *layer) unregisterConsumers(inst state.Instance) {
	for _, c := range inst.Consumers() {
		l.vars.Unregister(c)
	}
}

func (l *layer) refreshHasEvents() {
	l.hasEvents = false
	for _, s := range l.states {
		if len(s.Events()) > 0 {
			l.hasEvents = true
			return
		}
	}
}

// checkIndex logs a BoundsError for an out-of-range state index.
func (l *layer) checkIndex(op string, index int) bool {
	if index >= 0 && index < len(l.states) {
		return true
	}
	l.logger.Error("layer: state index out of range",
		"op", op,
		"layer", l.name,
		"error", &common.BoundsError{Kind: "state", Index: index, Count: len(l.states)},
	)
	return false
}

func (l *layer) Name() string {
	return l.name
}

func (l *layer) Output() graph.Node {
	return l.mixer
}

func (l *layer) ConnectTo(parent graph.Node, slot int) error {
	if err := l.g.Connect(l.mixer, parent, slot); err != nil {
		return fmt.Errorf("layer %q: %w", l.name, err)
	}
	l.output = parent
	l.outputSlot = slot
	return nil
}

func (l *layer) StateCount() int {
	return len(l.states)
}

func (l *layer) States() []state.State {
	return append([]state.State(nil), l.states...)
}

func (l *layer) State(index int) state.State {
	if index < 0 || index >= len(l.states) {
		return nil
	}
	return l.states[index]
}

func (l *layer) StateIndex(name string) int {
	if i, ok := l.nameIndex[name]; ok {
		return i
	}
	return -1
}

func (l *layer) StateIndexByGUID(id uuid.UUID) int {
	if i, ok := l.guidIndex[id]; ok {
		return i
	}
	return -1
}

func (l *layer) Update(deltaTime float32) {
	start := time.Now()
	l.clock += deltaTime

	for i, inst := range l.instances {
		if l.mixer.InputWeight(i) > 0 {
			inst.Progress()
		}
	}
	for _, tr := range l.transients {
		if tr.inst != nil {
			tr.inst.Progress()
		}
	}

	if l.hasEvents {
		l.fireEvents()
	}

	if l.blend.active {
		l.progressTransition()
	}

	l.drainQueue()

	l.vars.Update()

	l.metrics.ObserveLayerUpdate(l.name, time.Since(start))
}

func (l *layer) Clock() float32 {
	return l.clock
}

func (l *layer) CurrentState() int {
	return l.current
}

func (l *layer) Weight(index int) float32 {
	if !l.checkIndex("weight", index) {
		return 0
	}
	return l.mixer.InputWeight(index)
}

func (l *layer) Weights() []float32 {
	w := make([]float32, len(l.states))
	for i := range w {
		w[i] = l.mixer.InputWeight(i)
	}
	return w
}

func (l *layer) NodeWeights() []float32 {
	w := make([]float32, l.mixer.InputCount())
	for i := range w {
		w[i] = l.mixer.InputWeight(i)
	}
	return w
}

func (l *layer) NodeCount() int {
	return l.mixer.InputCount()
}

func (l *layer) TransientCount() int {
	return len(l.transients)
}

func (l *layer) TransientTime(k int) float32 {
	if k < 0 || k >= len(l.transients) {
		return 0
	}
	return l.transients[k].node.Time()
}

func (l *layer) IsPlaying(index int) bool {
	return l.Weight(index) > 0
}

func (l *layer) StateTime(index int) float32 {
	if !l.checkIndex("state_time", index) {
		return 0
	}
	return l.instances[index].Time()
}

func (l *layer) StateDuration(index int) float32 {
	if !l.checkIndex("state_duration", index) {
		return 0
	}
	return l.instances[index].Duration()
}

func (l *layer) NormalizedTime(index int) float32 {
	if !l.checkIndex("normalized_time", index) {
		return 0
	}
	d := l.instances[index].Duration()
	if d <= 0 {
		return 0
	}
	return l.instances[index].Time() / d
}

func (l *layer) AddState(s state.State) (int, error) {
	if s == nil {
		err := common.NewConfigurationError("layer "+l.name, "cannot add a nil state")
		l.logger.Error("layer: add state rejected", "layer", l.name, "error", err)
		return -1, err
	}
	if _, dup := l.guidIndex[s.GUID()]; dup {
		err := common.NewConfigurationError("layer "+l.name, "state %s is already part of the layer", s.GUID())
		l.logger.Error("layer: add state rejected", "layer", l.name, "state", s.Name(), "error", err)
		return -1, err
	}

	// A zero-input mixer cannot simply grow; rebuild everything.
	if len(l.states) == 0 {
		l.states = append(l.states, s)
		if err := l.initialize(); err != nil {
			l.states = l.states[:0]
			if rerr := l.initialize(); rerr != nil {
				l.logger.Error("layer: restore empty layer failed", "layer", l.name, "error", rerr)
			}
			l.logger.Error("layer: add state failed", "layer", l.name, "state", s.Name(), "error", err)
			return -1, err
		}
		return 0, nil
	}

	inst, err := s.Instantiate(l.g, l.swapper)
	if err != nil {
		l.logger.Error("layer: add state failed", "layer", l.name, "state", s.Name(), "error", err)
		return -1, err
	}

	index := len(l.states)
	count := l.mixer.InputCount()
	l.mixer.SetInputCount(count + 1)
	for slot := count - 1; slot >= index; slot-- {
		l.moveSlot(slot, slot+1)
	}
	if err := l.g.Connect(inst.Node(), l.mixer, index); err != nil {
		inst.Destroy()
		for slot := index + 1; slot <= count; slot++ {
			l.moveSlot(slot, slot-1)
		}
		l.mixer.SetInputCount(count)
		l.logger.Error("layer: add state failed", "layer", l.name, "state", s.Name(), "error", err)
		return -1, err
	}
	l.mixer.SetInputWeight(index, 0)

	l.states = append(l.states, s)
	l.instances = append(l.instances, inst)
	l.lastEventTime = append(l.lastEventTime, -1)
	if l.blend.snapshot != nil {
		l.blend.snapshot = insertAt(l.blend.snapshot, index, 0)
	}
	l.registerConsumers(inst)

	l.rebuildIndex()
	l.growLookup(index)
	l.refreshHasEvents()
	return index, nil
}

func (l *layer) AddTransition(t state.Transition) error {
	if err := l.validateTransition(t); err != nil {
		l.logger.Error("layer: add transition rejected", "layer", l.name, "error", err)
		return err
	}
	l.transitions = append(l.transitions, t)
	l.rebuildLookup()
	return nil
}

func (l *layer) RenameState(index int, name string) bool {
	if !l.checkIndex("rename_state", index) {
		return false
	}
	l.states[index].SetName(name)
	l.rebuildIndex()
	return true
}

func (l *layer) SetBlendVar(name string, value float32) int {
	return l.vars.Set(name, value)
}

func (l *layer) BlendVar(name string) (float32, bool) {
	return l.vars.Value(name)
}

func (l *layer) BlendVarNames() []string {
	return l.vars.Names()
}

func (l *layer) SetClipSwapper(s clip.Swapper) {
	l.swapper = s
	for i := range l.instances {
		l.rebuildSlot(i)
	}
}

// rebuildSlot regenerates the permanent node of state i, keeping its weight and time.
func (l *layer) rebuildSlot(i int) {
	old := l.instances[i]
	inst, err := l.states[i].Instantiate(l.g, l.swapper)
	if err != nil {
		l.logger.Error("layer: rebuild state failed", "layer", l.name, "state", l.states[i].Name(), "error", err)
		return
	}
	w := l.mixer.InputWeight(i)
	t := old.Time()
	l.unregisterConsumers(old)
	l.g.Disconnect(l.mixer, i)
	old.Destroy()
	if err := l.g.Connect(inst.Node(), l.mixer, i); err != nil {
		panic(fmt.Sprintf("layer %q: reconnect rebuilt state %d: %v", l.name, i, err))
	}
	l.mixer.SetInputWeight(i, w)
	state.CarryOver(old, inst)
	inst.SetTime(t)
	l.registerConsumers(inst)
	l.instances[i] = inst
}

func (l *layer) Destroy() {
	l.teardown()
	l.queue = nil
	l.blend = blendState{}
}

func insertAt(s []float32, i int, v float32) []float32 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
