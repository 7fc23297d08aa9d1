package loader_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/loader"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/character.yaml"

func loadFixture(t *testing.T) *loader.Definition {
	t.Helper()
	def, err := loader.NewLoader(loader.BackendTypeYAML).Load(fixture)
	require.NoError(t, err)
	return def
}

func TestLoadBuildsEveryLayer(t *testing.T) {
	def := loadFixture(t)

	assert.Equal(t, []string{"base", "upper"}, def.LayerNames())
	assert.Equal(t, fixture, def.Name())

	layers, err := def.Build(graph.NewGraph())
	require.NoError(t, err)
	require.Len(t, layers, 2)

	base := layers[0]
	assert.Equal(t, "base", base.Name())
	require.Equal(t, 5, base.StateCount())

	kinds := make([]state.Kind, base.StateCount())
	for i, s := range base.States() {
		kinds[i] = s.Kind()
	}
	assert.Equal(t, []state.Kind{
		state.KindSingleClip, state.KindBlendTree1D, state.KindBlendTree2D, state.KindRandomClip, state.KindSequence,
	}, kinds)

	idle := base.State(0)
	assert.Equal(t, uuid.MustParse("6f1c2f4e-3b7a-4c55-9d1e-0a2b3c4d5e6f"), idle.GUID())
	assert.Equal(t, float32(1), idle.Speed(), "unset speed plays at 1")
	assert.True(t, idle.Loops(), "loop defaults to true")
	require.Len(t, idle.Events(), 1)
	assert.Equal(t, "breathe", idle.Events()[0].Name)

	assert.False(t, base.State(3).Loops())
	assert.Equal(t, float32(1.5), base.State(4).Speed())

	v, ok := base.BlendVar("speed")
	assert.True(t, ok)
	assert.Equal(t, float32(0), v)
}

func TestBuiltLayerUsesAuthoredTransitions(t *testing.T) {
	def := loadFixture(t)
	g := graph.NewGraph()
	layers, err := def.Build(g)
	require.NoError(t, err)
	base := layers[0]

	require.NotNil(t, base.PlayByName("move"))
	assert.True(t, base.IsTransitioning(), "idle -> move is a curve crossfade")

	g.Evaluate(0.4)
	base.Update(0.4)
	assert.False(t, base.IsTransitioning())
	assert.Equal(t, 1, base.CurrentState())

	require.NotNil(t, base.PlayNamed(0, "trip"))
	assert.Equal(t, 1, base.TransientCount(), "the stumble clip plays in a transient slot")

	require.NotNil(t, base.PlayByName("jump"))
	assert.Equal(t, 4, base.CurrentState())
	assert.Equal(t, 0, base.TransientCount())
}

func TestBuildSharesTheClipLibrary(t *testing.T) {
	def := loadFixture(t)

	first, err := def.Build(graph.NewGraph())
	require.NoError(t, err)
	second, err := def.Build(graph.NewGraph())
	require.NoError(t, err)

	a := first[1].State(1).(*state.SingleClipState)
	b := second[1].State(1).(*state.SingleClipState)
	assert.Same(t, def.Clip("wave"), a.Clip())
	assert.Same(t, a.Clip(), b.Clip())
	assert.NotEqual(t, a.GUID(), b.GUID(), "states without an authored guid get fresh ones")
	assert.NotNil(t, def.Curve("smooth"))
	assert.Nil(t, def.Clip("missing"))
}

func TestAttachAddsLayersToAnimator(t *testing.T) {
	def := loadFixture(t)
	a := animator.NewAnimator(nil)

	layers, err := def.Attach(a)
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, 2, a.LayerCount())
	assert.Same(t, layers[1], a.LayerByName("upper"))
	assert.Equal(t, 1, a.SetBlendVar("dir_x", 1), "only the base layer strafe tree reads dir_x")
}

func TestLoaderCachesByPath(t *testing.T) {
	l := loader.NewLoader(loader.BackendTypeYAML)

	first, err := l.Load(fixture)
	require.NoError(t, err)
	second, err := l.Load(fixture)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, l.Get(fixture))
	assert.Nil(t, l.Get("other.yaml"))
	assert.Len(t, l.Definitions(), 1)
}

func TestLoaderRejectsUnknownExtension(t *testing.T) {
	_, err := loader.NewLoader(loader.BackendTypeYAML).Load("character.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported definition format")
}

func TestLoadReaderCachesByName(t *testing.T) {
	l := loader.NewLoader(loader.BackendTypeYAML)
	doc := `
version: 1
clips: [{name: idle, duration: 1}]
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: idle}]
`
	def, err := l.LoadReader("inline", strings.NewReader(doc))
	require.NoError(t, err)
	assert.Same(t, def, l.Get("inline"))

	again, err := l.LoadReader("inline", strings.NewReader("garbage"))
	require.NoError(t, err, "a cached name is not decoded again")
	assert.Same(t, def, again)
}

func TestWithDefinitionPrepopulatesCache(t *testing.T) {
	def := loadFixture(t)
	l := loader.NewLoader(loader.BackendTypeYAML, loader.WithDefinition("hero", def))
	assert.Same(t, def, l.Get("hero"))
}

func TestLoadFromTempFile(t *testing.T) {
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "hero.yml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	def, err := loader.NewLoader(loader.BackendTypeYAML).Load(path)
	require.NoError(t, err)
	assert.Len(t, def.LayerNames(), 2)

	_, err = loader.NewLoader(loader.BackendTypeYAML).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	for _, tc := range []struct {
		name   string
		doc    string
		config bool
	}{
		{
			name:   "empty",
			doc:    "",
			config: true,
		},
		{
			name:   "wrong version",
			doc:    "version: 2\n",
			config: true,
		},
		{
			name: "unknown field",
			doc:  "version: 1\nlayerz: []\n",
		},
		{
			name:   "duplicate clip",
			doc:    "version: 1\nclips: [{name: a, duration: 1}, {name: a, duration: 2}]\n",
			config: true,
		},
		{
			name: "unknown clip",
			doc: `version: 1
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: nope}]
`,
			config: true,
		},
		{
			name: "unknown kind",
			doc: `version: 1
clips: [{name: a, duration: 1}]
layers:
  - name: base
    states: [{name: idle, kind: ragdoll, clip: a}]
`,
			config: true,
		},
		{
			name: "transition to unknown state",
			doc: `version: 1
clips: [{name: a, duration: 1}]
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: a}]
    transitions: [{from: idle, to: run, default: true}]
`,
			config: true,
		},
		{
			name: "unknown curve",
			doc: `version: 1
clips: [{name: a, duration: 1}]
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: a}, {name: b, kind: single_clip, clip: a}]
    transitions: [{from: idle, to: b, default: true, type: curve, duration: 1, curve: wobble}]
`,
			config: true,
		},
		{
			name: "clip transition with duration",
			doc: `version: 1
clips: [{name: a, duration: 1}, {name: bridge, duration: 0.5}]
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: a}, {name: b, kind: single_clip, clip: a}]
    transitions: [{from: idle, to: b, default: true, type: clip, clip: bridge, duration: 2}]
`,
			config: true,
		},
		{
			name: "neither default nor named",
			doc: `version: 1
clips: [{name: a, duration: 1}]
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: a}, {name: b, kind: single_clip, clip: a}]
    transitions: [{from: idle, to: b, type: linear, duration: 1}]
`,
			config: true,
		},
		{
			name: "shared guid",
			doc: `version: 1
clips: [{name: a, duration: 1}]
layers:
  - name: base
    states:
      - {name: idle, kind: single_clip, clip: a, guid: 6f1c2f4e-3b7a-4c55-9d1e-0a2b3c4d5e6f}
      - {name: b, kind: single_clip, clip: a, guid: 6f1c2f4e-3b7a-4c55-9d1e-0a2b3c4d5e6f}
`,
			config: true,
		},
		{
			name: "bad guid",
			doc: `version: 1
clips: [{name: a, duration: 1}]
layers:
  - name: base
    states: [{name: idle, kind: single_clip, clip: a, guid: not-a-guid}]
`,
			config: true,
		},
		{
			name: "curve preset and keys",
			doc: `version: 1
curves:
  both: {preset: linear, keys: [{time: 0, value: 0}]}
`,
			config: true,
		},
		{
			name: "layer without states",
			doc: `version: 1
layers: [{name: base}]
`,
			config: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loader.Parse([]byte(tc.doc))
			require.Error(t, err)
			if tc.config {
				assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
			}
		})
	}
}

func TestBuildReportsUnsortedBlendTree(t *testing.T) {
	def, err := loader.Parse([]byte(`version: 1
clips: [{name: walk, duration: 1}, {name: run, duration: 0.5}]
layers:
  - name: base
    states:
      - name: move
        kind: blend_tree_1d
        variable: speed
        entries: [{clip: run, threshold: 1}, {clip: walk, threshold: 0}]
`))
	require.NoError(t, err, "threshold order is checked when the tree is instantiated")

	_, err = def.Build(graph.NewGraph())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
}
