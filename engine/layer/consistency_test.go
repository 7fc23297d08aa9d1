package layer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consistencyPanic runs f and returns the ConsistencyError it panicked with, or nil.
func consistencyPanic(f func()) (err *common.ConsistencyError) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(*common.ConsistencyError)
		}
	}()
	f()
	return nil
}

func newInternalLayer(t *testing.T) (graph.Graph, *layer) {
	t.Helper()
	g := graph.NewGraph()
	l, err := NewLayer(g, "base", []state.State{
		state.NewSingleClip("attack", clip.New("attack", 2), state.WithLoop(false)),
		state.NewSingleClip("idle", clip.New("idle", 1)),
	}, nil)
	require.NoError(t, err)
	return g, l.(*layer)
}

func advanceLayer(g graph.Graph, l *layer, dt float32) {
	g.Evaluate(dt)
	l.Update(dt)
}

func TestConsistencyHoldsThroughTransientCollection(t *testing.T) {
	g, l := newInternalLayer(t)
	advanceLayer(g, l, 0.5)
	l.PlayWith(0, state.Linear(1))
	require.Len(t, l.transients, 1)

	assert.Nil(t, consistencyPanic(func() {
		advanceLayer(g, l, 0.5)
		advanceLayer(g, l, 0.495)
		advanceLayer(g, l, 0.1)
	}))
	assert.Equal(t, 2, l.mixer.InputCount())
}

func TestConsistencyPanicsWhenSlotsLeakAfterCollection(t *testing.T) {
	g, l := newInternalLayer(t)
	advanceLayer(g, l, 0.5)
	l.PlayWith(0, state.Linear(1))
	require.Len(t, l.transients, 1)

	// An untracked slot behind the transient survives collection.
	l.mixer.SetInputCount(l.mixer.InputCount() + 1)

	err := consistencyPanic(func() {
		advanceLayer(g, l, 0.5)
		advanceLayer(g, l, 0.495)
	})
	require.NotNil(t, err)
	assert.Equal(t, "base", err.Layer)
	assert.Equal(t, 3, err.Nodes)
	assert.Equal(t, 2, err.States)
}

func TestConsistencyPanicsWhenBlendCompletesWithExtraSlot(t *testing.T) {
	g, l := newInternalLayer(t)
	l.PlayWith(1, state.Linear(0.5))
	l.mixer.SetInputCount(l.mixer.InputCount() + 1)

	err := consistencyPanic(func() {
		advanceLayer(g, l, 0.6)
	})
	require.NotNil(t, err)
	assert.Equal(t, 3, err.Nodes)
}
