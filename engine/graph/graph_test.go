package graph_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRules(t *testing.T) {
	g := graph.NewGraph()
	mixer := g.CreateMixerNode(2)
	a := g.CreateClipNode(clip.New("a", 1))
	b := g.CreateClipNode(clip.New("b", 1))

	require.NoError(t, g.Connect(a, mixer, 0))
	assert.Same(t, a, mixer.Input(0))
	assert.Same(t, mixer, a.Output())

	assert.Error(t, g.Connect(b, mixer, 0), "occupied slot")
	assert.Error(t, g.Connect(a, mixer, 1), "source already has an output")
	assert.Error(t, g.Connect(b, mixer, 2), "slot out of range")
	assert.Error(t, g.Connect(mixer, mixer, 1), "self feed")

	g.Disconnect(mixer, 0)
	assert.Nil(t, mixer.Input(0))
	assert.Nil(t, a.Output())
	assert.NoError(t, g.Connect(b, mixer, 0))
}

func TestEvaluateAdvancesRootsWithSpeed(t *testing.T) {
	g := graph.NewGraph()
	root := g.CreateMixerNode(1)
	inner := g.CreateMixerNode(1)
	leaf := g.CreateClipNode(clip.New("leaf", 1))
	loose := g.CreateClipNode(clip.New("loose", 1))

	require.NoError(t, g.Connect(inner, root, 0))
	require.NoError(t, g.Connect(leaf, inner, 0))
	inner.SetSpeed(2)
	leaf.SetSpeed(0.5)

	g.Evaluate(0.5)

	assert.Equal(t, float32(0.5), root.Time())
	assert.Equal(t, float32(1), inner.Time())
	assert.Equal(t, float32(0.5), leaf.Time(), "speeds compose down the tree")
	assert.Equal(t, float32(0.5), loose.Time(), "unconnected nodes are roots")
}

func TestSetInputCountDetachesTruncatedInputs(t *testing.T) {
	g := graph.NewGraph()
	mixer := g.CreateMixerNode(2)
	a := g.CreateClipNode(clip.New("a", 1))
	require.NoError(t, g.Connect(a, mixer, 1))
	mixer.SetInputWeight(1, 0.5)

	mixer.SetInputCount(1)
	assert.Equal(t, 1, mixer.InputCount())
	assert.Nil(t, a.Output())
	assert.Equal(t, float32(0), mixer.InputWeight(1), "out of range slots read as zero")

	mixer.SetInputCount(3)
	assert.Equal(t, 3, mixer.InputCount())
	assert.Nil(t, mixer.Input(2))
}

func TestDestroyDetachesBothSides(t *testing.T) {
	g := graph.NewGraph()
	root := g.CreateMixerNode(1)
	mid := g.CreateMixerNode(1)
	leaf := g.CreateClipNode(clip.New("leaf", 1))
	require.NoError(t, g.Connect(mid, root, 0))
	require.NoError(t, g.Connect(leaf, mid, 0))
	require.Equal(t, 3, g.NodeCount())

	mid.Destroy()
	mid.Destroy()

	assert.False(t, mid.Valid())
	assert.Nil(t, root.Input(0))
	assert.Nil(t, leaf.Output())
	assert.Equal(t, 2, g.NodeCount())
	assert.Error(t, g.Connect(leaf, mid, 0), "dead nodes cannot be connected")
}
