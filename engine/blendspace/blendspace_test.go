package blendspace_test

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/blendspace"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mixerWithClips builds a mixer whose n inputs are connected clip nodes.
func mixerWithClips(t *testing.T, n int) graph.Node {
	t.Helper()
	g := graph.NewGraph()
	m := g.CreateMixerNode(n)
	for i := 0; i < n; i++ {
		require.NoError(t, g.Connect(g.CreateClipNode(clip.New("c", 1)), m, i))
	}
	return m
}

func TestBlendSpace1DWeights(t *testing.T) {
	entries := []blendspace.Entry1D{
		{Threshold: 0, Duration: 1},
		{Threshold: 1, Duration: 0.5},
		{Threshold: 3, Duration: 0.25},
	}
	for _, tc := range []struct {
		name  string
		value float32
		want  []float32
	}{
		{name: "first threshold", value: 0, want: []float32{1, 0, 0}},
		{name: "between first pair", value: 0.25, want: []float32{0.75, 0.25, 0}},
		{name: "on the middle threshold", value: 1, want: []float32{0, 1, 0}},
		{name: "between second pair", value: 2, want: []float32{0, 0.5, 0.5}},
		{name: "clamped low", value: -5, want: []float32{1, 0, 0}},
		{name: "clamped high", value: 10, want: []float32{0, 0, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b, err := blendspace.NewBlendSpace1D(mixerWithClips(t, 3), "speed", entries, false)
			require.NoError(t, err)
			b.SetValue(tc.value)
			assert.InDeltaSlice(t, tc.want, b.Weights(), 1e-6)
		})
	}
}

func TestBlendSpace1DCompensatesSpeed(t *testing.T) {
	m := mixerWithClips(t, 2)
	b, err := blendspace.NewBlendSpace1D(m, "speed", []blendspace.Entry1D{
		{Threshold: 0, Duration: 1},
		{Threshold: 1, Duration: 0.5},
	}, true)
	require.NoError(t, err)

	b.SetValue(0.5)

	assert.InDelta(t, 0.75, b.InterpolatedDuration(), 1e-6)
	assert.InDelta(t, 1/0.75, m.Input(0).Speed(), 1e-5)
	assert.InDelta(t, 0.5/0.75, m.Input(1).Speed(), 1e-5)
}

func TestBlendSpace1DSkipsUnchangedValue(t *testing.T) {
	b, err := blendspace.NewBlendSpace1D(mixerWithClips(t, 2), "speed", []blendspace.Entry1D{
		{Threshold: 0}, {Threshold: 1},
	}, false)
	require.NoError(t, err)
	base := b.Recomputes()

	b.SetValue(0.5)
	b.SetValue(0.5)
	assert.Equal(t, base+1, b.Recomputes())
	assert.Equal(t, float32(0.5), b.Value())
}

func TestBlendSpace1DRejectsBadConfiguration(t *testing.T) {
	_, err := blendspace.NewBlendSpace1D(mixerWithClips(t, 2), "speed", nil, false)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)

	_, err = blendspace.NewBlendSpace1D(mixerWithClips(t, 2), "speed", []blendspace.Entry1D{
		{Threshold: 1}, {Threshold: 1},
	}, false)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)

	_, err = blendspace.NewBlendSpace1D(mixerWithClips(t, 1), "speed", []blendspace.Entry1D{
		{Threshold: 0}, {Threshold: 1},
	}, false)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
}

func TestBlendSpace2DWeights(t *testing.T) {
	b, err := blendspace.NewBlendSpace2D(mixerWithClips(t, 3), "x", "y", []blendspace.Entry2D{
		{Threshold: common.Vec2{X: -1, Y: 0}, Duration: 1},
		{Threshold: common.Vec2{X: 1, Y: 0}, Duration: 1},
		{Threshold: common.Vec2{X: 0, Y: 1}, Duration: 2},
	})
	require.NoError(t, err)

	b.SetX(1)
	b.SetY(0)
	require.True(t, b.Dirty())
	b.Update()
	assert.False(t, b.Dirty())
	assert.InDeltaSlice(t, []float32{0, 1, 0}, b.Weights(), 1e-6, "a query on an entry gives it full weight")

	b.SetX(0)
	b.SetY(1)
	b.Update()
	assert.InDeltaSlice(t, []float32{0, 0, 1}, b.Weights(), 1e-6)
	assert.InDelta(t, 2, b.WeightedDuration(), 1e-6)

	lo, hi := b.Range()
	assert.Equal(t, common.Vec2{X: -1, Y: 0}, lo)
	assert.Equal(t, common.Vec2{X: 1, Y: 1}, hi)
}

func TestBlendSpace2DInterpolatesBetweenTwoPoints(t *testing.T) {
	b, err := blendspace.NewBlendSpace2D(mixerWithClips(t, 2), "x", "y", []blendspace.Entry2D{
		{Threshold: common.Vec2{X: 0, Y: 0}},
		{Threshold: common.Vec2{X: 1, Y: 0}},
	})
	require.NoError(t, err)

	b.SetX(0.25)
	b.Update()
	assert.InDeltaSlice(t, []float32{0.75, 0.25}, b.Weights(), 1e-6)
}

func TestBlendSpace2DIgnoresTinyMoves(t *testing.T) {
	b, err := blendspace.NewBlendSpace2D(mixerWithClips(t, 2), "x", "y", []blendspace.Entry2D{
		{Threshold: common.Vec2{X: 0, Y: 0}},
		{Threshold: common.Vec2{X: 10, Y: 0}},
	})
	require.NoError(t, err)
	base := b.Recomputes()

	b.SetX(0.05)
	assert.False(t, b.Dirty(), "less than one percent of the axis range")
	b.Update()
	assert.Equal(t, base, b.Recomputes())

	b.SetX(0.5)
	assert.True(t, b.Dirty())
	b.Update()
	assert.Equal(t, base+1, b.Recomputes())
	assert.InDelta(t, 0.5, b.Input().X, 1e-6)
}

func TestBlendSpace2DRejectsCoincidentPoints(t *testing.T) {
	_, err := blendspace.NewBlendSpace2D(mixerWithClips(t, 2), "x", "y", []blendspace.Entry2D{
		{Threshold: common.Vec2{X: 1, Y: 1}},
		{Threshold: common.Vec2{X: 1, Y: 1}},
	})
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
}

func TestBlendSpace2DSingleEntry(t *testing.T) {
	b, err := blendspace.NewBlendSpace2D(mixerWithClips(t, 1), "x", "y", []blendspace.Entry2D{
		{Threshold: common.Vec2{X: 0.5, Y: -0.5}, Duration: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, b.Weights())

	for _, in := range []common.Vec2{{X: 0, Y: 0}, {X: 100, Y: -100}, {X: -3, Y: 7}, {X: 0.5, Y: -0.5}} {
		b.SetX(in.X)
		b.SetY(in.Y)
		b.Update()
		assert.Equal(t, []float32{1}, b.Weights(), "input %v", in)
	}
}

func TestBlendSpacesIgnoreNonFiniteInput(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	b1, err := blendspace.NewBlendSpace1D(mixerWithClips(t, 2), "speed", []blendspace.Entry1D{
		{Threshold: 0, Duration: 1},
		{Threshold: 1, Duration: 1},
	}, false)
	require.NoError(t, err)
	b1.SetValue(0.25)
	recomputes := b1.Recomputes()

	for _, v := range []float32{nan, inf, -inf} {
		b1.SetValue(v)
		assert.InDeltaSlice(t, []float32{0.75, 0.25}, b1.Weights(), 1e-6)
	}
	assert.Equal(t, recomputes, b1.Recomputes())
	assert.Equal(t, float32(0.25), b1.Value())

	b2, err := blendspace.NewBlendSpace2D(mixerWithClips(t, 2), "x", "y", []blendspace.Entry2D{
		{Threshold: common.Vec2{X: 0, Y: 0}},
		{Threshold: common.Vec2{X: 1, Y: 0}},
	})
	require.NoError(t, err)
	b2.SetX(0.25)
	b2.Update()

	b2.SetX(nan)
	b2.SetY(inf)
	assert.False(t, b2.Dirty())
	b2.Update()
	assert.InDeltaSlice(t, []float32{0.75, 0.25}, b2.Weights(), 1e-6)
}

func TestAggregatorFansOutAndReplays(t *testing.T) {
	agg := blendspace.NewAggregator()
	first, err := blendspace.NewBlendSpace1D(mixerWithClips(t, 2), "speed", []blendspace.Entry1D{{Threshold: 0}, {Threshold: 1}}, false)
	require.NoError(t, err)
	second, err := blendspace.NewBlendSpace1D(mixerWithClips(t, 2), "speed", []blendspace.Entry1D{{Threshold: 0}, {Threshold: 2}}, false)
	require.NoError(t, err)

	agg.Register(first)
	agg.Register(first)
	assert.Equal(t, 1, agg.ConsumerCount(), "registering twice is a no-op")

	assert.Equal(t, 1, agg.Set("speed", 1))
	assert.Equal(t, 0, agg.Set("lean", 0.3))

	agg.Register(second)
	assert.Equal(t, float32(1), second.Value(), "a late consumer receives the current value")
	assert.Equal(t, 2, agg.Set("speed", 0.5))
	assert.Equal(t, []string{"lean", "speed"}, agg.Names())

	agg.Unregister(first)
	assert.Equal(t, 1, agg.Set("speed", 0))
	v, ok := agg.Value("speed")
	assert.True(t, ok)
	assert.Equal(t, float32(0), v)
}
