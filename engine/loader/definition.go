package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/layer"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/google/uuid"
)

// Document is the decoded form of a definition file. Clips and curves are declared once at the top level and
// referenced by name from states and transitions.
type Document struct {
	Version int                  `yaml:"version"`
	Clips   []ClipSpec           `yaml:"clips"`
	Curves  map[string]CurveSpec `yaml:"curves"`
	Layers  []LayerSpec          `yaml:"layers"`
}

// ClipSpec declares a clip by name and length.
type ClipSpec struct {
	Name     string  `yaml:"name"`
	Duration float32 `yaml:"duration"`
}

// CurveSpec declares a transition curve, either from a preset ("linear", "ease_in_out") or from keyframes.
type CurveSpec struct {
	Preset string    `yaml:"preset"`
	Keys   []KeySpec `yaml:"keys"`
}

// KeySpec is one curve keyframe.
type KeySpec struct {
	Time  float32 `yaml:"time"`
	Value float32 `yaml:"value"`
	In    float32 `yaml:"in"`
	Out   float32 `yaml:"out"`
}

// TransitionSpec declares a crossfade. Type is one of "instant", "linear", "curve" or "clip".
type TransitionSpec struct {
	Type     string  `yaml:"type"`
	Duration float32 `yaml:"duration"`
	Curve    string  `yaml:"curve"`
	Clip     string  `yaml:"clip"`
}

// LayerSpec declares one state layer.
type LayerSpec struct {
	Name              string             `yaml:"name"`
	DefaultTransition *TransitionSpec    `yaml:"default_transition"`
	BlendVars         map[string]float32 `yaml:"blend_vars"`
	States            []StateSpec        `yaml:"states"`
	Transitions       []EdgeSpec         `yaml:"transitions"`
}

// StateSpec declares one state. Which fields apply depends on Kind:
//   - single_clip: Clip
//   - random_clip: Clips, Seed
//   - sequence: Clips
//   - blend_tree_1d: Variable, Compensate, Entries (Clip, Threshold)
//   - blend_tree_2d: XVar, YVar, Entries (Clip, X, Y)
//
// A Speed of 0 means unset and plays at 1. Loop defaults to true.
type StateSpec struct {
	Name       string      `yaml:"name"`
	Kind       string      `yaml:"kind"`
	Clip       string      `yaml:"clip"`
	Clips      []string    `yaml:"clips"`
	Seed       uint64      `yaml:"seed"`
	Variable   string      `yaml:"variable"`
	Compensate bool        `yaml:"compensate"`
	XVar       string      `yaml:"x_var"`
	YVar       string      `yaml:"y_var"`
	Entries    []EntrySpec `yaml:"entries"`
	Speed      float32     `yaml:"speed"`
	Loop       *bool       `yaml:"loop"`
	GUID       string      `yaml:"guid"`
	Events     []EventSpec `yaml:"events"`
}

// EntrySpec is one blend tree entry.
type EntrySpec struct {
	Clip      string  `yaml:"clip"`
	Threshold float32 `yaml:"threshold"`
	X         float32 `yaml:"x"`
	Y         float32 `yaml:"y"`
}

// EventSpec declares a timed state event.
type EventSpec struct {
	Name         string  `yaml:"name"`
	Time         float32 `yaml:"time"`
	MinWeight    float32 `yaml:"min_weight"`
	MustBeActive bool    `yaml:"must_be_active"`
}

// EdgeSpec declares a transition between two states of the same layer by state name.
type EdgeSpec struct {
	From           string `yaml:"from"`
	To             string `yaml:"to"`
	Name           string `yaml:"name"`
	Default        bool   `yaml:"default"`
	TransitionSpec `yaml:",inline"`
}

// Definition is a validated Document with its clip library and curves resolved. Clips are shared by every
// layer built from the same Definition, so a clip.SwapMap keyed by Definition.Clip works across builds.
type Definition struct {
	name   string
	doc    Document
	clips  map[string]*clip.Clip
	curves map[string]*clip.Curve
}

// newDefinition resolves the clip library and curves, then dry-runs every layer so reference errors surface at
// load time rather than at Build time.
func newDefinition(name string, doc *Document) (*Definition, error) {
	d := &Definition{
		name:   name,
		doc:    *doc,
		clips:  make(map[string]*clip.Clip, len(doc.Clips)),
		curves: make(map[string]*clip.Curve, len(doc.Curves)),
	}

	for _, c := range doc.Clips {
		if c.Name == "" {
			return nil, common.NewConfigurationError("loader", "clip without a name")
		}
		if _, dup := d.clips[c.Name]; dup {
			return nil, common.NewConfigurationError("loader", "duplicate clip %q", c.Name)
		}
		if c.Duration < 0 {
			return nil, common.NewConfigurationError("clip "+c.Name, "negative duration %g", c.Duration)
		}
		d.clips[c.Name] = clip.New(c.Name, c.Duration)
	}

	for curveName, spec := range doc.Curves {
		c, err := buildCurve(curveName, spec)
		if err != nil {
			return nil, err
		}
		d.curves[curveName] = c
	}

	seen := make(map[string]struct{}, len(doc.Layers))
	for _, ls := range doc.Layers {
		if ls.Name == "" {
			return nil, common.NewConfigurationError("loader", "layer without a name")
		}
		if _, dup := seen[ls.Name]; dup {
			return nil, common.NewConfigurationError("loader", "duplicate layer %q", ls.Name)
		}
		seen[ls.Name] = struct{}{}
		if _, _, _, err := d.layerInputs(ls); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func buildCurve(name string, spec CurveSpec) (*clip.Curve, error) {
	switch {
	case spec.Preset != "" && len(spec.Keys) > 0:
		return nil, common.NewConfigurationError("curve "+name, "preset and keys are mutually exclusive")
	case spec.Preset == "linear":
		return clip.LinearCurve(), nil
	case spec.Preset == "ease_in_out":
		return clip.EaseInOutCurve(), nil
	case spec.Preset != "":
		return nil, common.NewConfigurationError("curve "+name, "unknown preset %q", spec.Preset)
	case len(spec.Keys) == 0:
		return nil, common.NewConfigurationError("curve "+name, "no keys")
	}
	keys := make([]clip.Keyframe, len(spec.Keys))
	for i, k := range spec.Keys {
		keys[i] = clip.Keyframe{Time: k.Time, Value: k.Value, InTangent: k.In, OutTangent: k.Out}
	}
	return clip.NewCurve(keys...), nil
}

// Name returns the cache key or path the definition was loaded from, empty for Parse.
func (d *Definition) Name() string {
	return d.name
}

// Document returns the decoded document.
func (d *Definition) Document() Document {
	return d.doc
}

// Clip returns the shared clip declared under name, or nil.
func (d *Definition) Clip(name string) *clip.Clip {
	return d.clips[name]
}

// Curve returns the curve declared under name, or nil.
func (d *Definition) Curve(name string) *clip.Curve {
	return d.curves[name]
}

// LayerNames returns the declared layer names in order.
func (d *Definition) LayerNames() []string {
	names := make([]string, len(d.doc.Layers))
	for i, ls := range d.doc.Layers {
		names[i] = ls.Name
	}
	return names
}

// Build creates every declared layer in g. States get fresh GUIDs unless the document fixes them, so building
// the same Definition twice yields independent layers. Options are applied after the declared default
// transition and blend variables.
//
// Parameters:
//   - g: the pose graph the layers build their nodes in
//   - options: extra layer options, e.g. layer.WithLogger
//
// Returns:
//   - []layer.Layer: the layers in declaration order, not yet connected to any output
//   - error: an error if a layer could not be built; layers built before it are destroyed
func (d *Definition) Build(g graph.Graph, options ...layer.LayerBuilderOption) ([]layer.Layer, error) {
	layers := make([]layer.Layer, 0, len(d.doc.Layers))
	for _, ls := range d.doc.Layers {
		states, transitions, opts, err := d.layerInputs(ls)
		if err != nil {
			destroyAll(layers)
			return nil, err
		}
		l, err := layer.NewLayer(g, ls.Name, states, transitions, append(opts, options...)...)
		if err != nil {
			destroyAll(layers)
			return nil, fmt.Errorf("build layer %q: %w", ls.Name, err)
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// Attach builds every declared layer in the animator's graph and attaches them in declaration order.
//
// Parameters:
//   - a: the animator
//   - options: extra layer options applied after the animator's logger and metrics
//
// Returns:
//   - []layer.Layer: the attached layers
//   - error: an error if a layer could not be built
func (d *Definition) Attach(a animator.Animator, options ...layer.LayerBuilderOption) ([]layer.Layer, error) {
	layers := make([]layer.Layer, 0, len(d.doc.Layers))
	for _, ls := range d.doc.Layers {
		states, transitions, opts, err := d.layerInputs(ls)
		if err != nil {
			return layers, err
		}
		l, err := a.AddLayer(ls.Name, states, transitions, append(opts, options...)...)
		if err != nil {
			return layers, fmt.Errorf("attach layer %q: %w", ls.Name, err)
		}
		layers = append(layers, l)
	}
	return layers, nil
}

func destroyAll(layers []layer.Layer) {
	for _, l := range layers {
		l.Destroy()
	}
}

// layerInputs turns a LayerSpec into the arguments of layer.NewLayer.
func (d *Definition) layerInputs(ls LayerSpec) ([]state.State, []state.Transition, []layer.LayerBuilderOption, error) {
	component := "layer " + ls.Name
	if len(ls.States) == 0 {
		return nil, nil, nil, common.NewConfigurationError(component, "no states")
	}

	states := make([]state.State, 0, len(ls.States))
	byName := make(map[string]state.State, len(ls.States))
	guids := make(map[uuid.UUID]string, len(ls.States))
	for _, ss := range ls.States {
		if _, dup := byName[ss.Name]; dup {
			return nil, nil, nil, common.NewConfigurationError(component, "duplicate state %q", ss.Name)
		}
		st, err := d.buildState(ss)
		if err != nil {
			return nil, nil, nil, err
		}
		if other, dup := guids[st.GUID()]; dup {
			return nil, nil, nil, common.NewConfigurationError(component, "states %q and %q share guid %s", other, ss.Name, st.GUID())
		}
		guids[st.GUID()] = ss.Name
		byName[ss.Name] = st
		states = append(states, st)
	}

	transitions := make([]state.Transition, 0, len(ls.Transitions))
	for _, es := range ls.Transitions {
		from, ok := byName[es.From]
		if !ok {
			return nil, nil, nil, common.NewConfigurationError(component, "transition from unknown state %q", es.From)
		}
		to, ok := byName[es.To]
		if !ok {
			return nil, nil, nil, common.NewConfigurationError(component, "transition to unknown state %q", es.To)
		}
		if !es.Default && es.Name == "" {
			return nil, nil, nil, common.NewConfigurationError(component, "transition %s -> %s is neither default nor named", es.From, es.To)
		}
		data, err := d.transitionData(component, es.TransitionSpec)
		if err != nil {
			return nil, nil, nil, err
		}
		transitions = append(transitions, state.NewTransition(from, to, data, es.Default).Named(es.Name))
	}

	var opts []layer.LayerBuilderOption
	if ls.DefaultTransition != nil {
		data, err := d.transitionData(component, *ls.DefaultTransition)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, layer.WithDefaultTransition(data))
	}
	vars := make([]string, 0, len(ls.BlendVars))
	for name := range ls.BlendVars {
		vars = append(vars, name)
	}
	slices.Sort(vars)
	for _, name := range vars {
		opts = append(opts, layer.WithBlendVar(name, ls.BlendVars[name]))
	}
	return states, transitions, opts, nil
}

func (d *Definition) transitionData(component string, ts TransitionSpec) (state.TransitionData, error) {
	var data state.TransitionData
	switch ts.Type {
	case "", "instant":
		data = state.Instant()
	case "linear":
		data = state.Linear(ts.Duration)
	case "curve":
		c, ok := d.curves[ts.Curve]
		if !ok {
			return data, common.NewConfigurationError(component, "unknown curve %q", ts.Curve)
		}
		data = state.CurveTransition(ts.Duration, c)
	case "clip":
		c, ok := d.clips[ts.Clip]
		if !ok {
			return data, common.NewConfigurationError(component, "unknown transition clip %q", ts.Clip)
		}
		if ts.Duration != 0 {
			return data, common.NewConfigurationError(component, "clip transition %q takes its duration from the clip", ts.Clip)
		}
		data = state.ClipTransition(c)
	default:
		return data, common.NewConfigurationError(component, "unknown transition type %q", ts.Type)
	}
	if err := data.Validate(); err != nil {
		return data, fmt.Errorf("%s: %w", component, err)
	}
	return data, nil
}

func (d *Definition) clip(component, name string) (*clip.Clip, error) {
	c, ok := d.clips[name]
	if !ok {
		return nil, common.NewConfigurationError(component, "unknown clip %q", name)
	}
	return c, nil
}

func (d *Definition) clipList(component string, names []string) ([]*clip.Clip, error) {
	if len(names) == 0 {
		return nil, common.NewConfigurationError(component, "no clips")
	}
	out := make([]*clip.Clip, len(names))
	for i, n := range names {
		c, err := d.clip(component, n)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (d *Definition) buildState(ss StateSpec) (state.State, error) {
	if ss.Name == "" {
		return nil, common.NewConfigurationError("loader", "state without a name")
	}
	component := "state " + ss.Name

	opts := []state.StateBuilderOption{
		state.WithSpeed(common.Coalesce(ss.Speed, 1)),
	}
	if ss.Loop != nil {
		opts = append(opts, state.WithLoop(*ss.Loop))
	}
	if ss.GUID != "" {
		id, err := uuid.Parse(ss.GUID)
		if err != nil {
			return nil, common.NewConfigurationError(component, "invalid guid %q: %v", ss.GUID, err)
		}
		opts = append(opts, state.WithGUID(id))
	}
	if len(ss.Events) > 0 {
		events := make([]state.Event, len(ss.Events))
		for i, es := range ss.Events {
			if es.Name == "" {
				return nil, common.NewConfigurationError(component, "event without a name")
			}
			events[i] = state.Event{Name: es.Name, Time: es.Time, MinWeight: es.MinWeight, MustBeActiveState: es.MustBeActive}
		}
		opts = append(opts, state.WithEvents(events...))
	}

	switch ss.Kind {
	case state.KindSingleClip.String():
		c, err := d.clip(component, ss.Clip)
		if err != nil {
			return nil, err
		}
		return state.NewSingleClip(ss.Name, c, opts...), nil
	case state.KindRandomClip.String():
		clips, err := d.clipList(component, ss.Clips)
		if err != nil {
			return nil, err
		}
		return state.NewRandomClip(ss.Name, clips, ss.Seed, opts...), nil
	case state.KindSequence.String():
		clips, err := d.clipList(component, ss.Clips)
		if err != nil {
			return nil, err
		}
		return state.NewSequence(ss.Name, clips, opts...), nil
	case state.KindBlendTree1D.String():
		if ss.Variable == "" {
			return nil, common.NewConfigurationError(component, "1D blend tree without a variable")
		}
		entries := make([]state.BlendTree1DEntry, len(ss.Entries))
		for i, e := range ss.Entries {
			c, err := d.clip(component, e.Clip)
			if err != nil {
				return nil, err
			}
			entries[i] = state.BlendTree1DEntry{Clip: c, Threshold: e.Threshold}
		}
		return state.NewBlendTree1D(ss.Name, ss.Variable, entries, ss.Compensate, opts...), nil
	case state.KindBlendTree2D.String():
		if ss.XVar == "" || ss.YVar == "" {
			return nil, common.NewConfigurationError(component, "2D blend tree needs x_var and y_var")
		}
		entries := make([]state.BlendTree2DEntry, len(ss.Entries))
		for i, e := range ss.Entries {
			c, err := d.clip(component, e.Clip)
			if err != nil {
				return nil, err
			}
			entries[i] = state.BlendTree2DEntry{Clip: c, X: e.X, Y: e.Y}
		}
		return state.NewBlendTree2D(ss.Name, ss.XVar, ss.YVar, entries, opts...), nil
	default:
		return nil, common.NewConfigurationError(component, "unknown state kind %q", ss.Kind)
	}
}
