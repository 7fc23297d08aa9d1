package animator_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/layer"
	"github.com/Carmen-Shannon/oxy-blend/engine/profiler"
	"github.com/Carmen-Shannon/oxy-blend/engine/renderer/weight_buffer"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locomotionStates() []state.State {
	return []state.State{
		state.NewSingleClip("idle", clip.New("idle", 1)),
		state.NewBlendTree1D("move", "speed", []state.BlendTree1DEntry{
			{Clip: clip.New("walk", 1), Threshold: 0},
			{Clip: clip.New("run", 0.5), Threshold: 1},
		}, true),
	}
}

func upperBodyStates() []state.State {
	return []state.State{
		state.NewSingleClip("none", clip.New("none", 1)),
		state.NewSingleClip("wave", clip.New("wave", 2), state.WithLoop(false)),
	}
}

func newTestAnimator(t *testing.T, options ...animator.AnimatorBuilderOption) animator.Animator {
	t.Helper()
	a := animator.NewAnimator(nil, options...)
	_, err := a.AddLayer("base", locomotionStates(), nil)
	require.NoError(t, err)
	_, err = a.AddLayer("upper", upperBodyStates(), nil, layer.WithDefaultTransition(state.Linear(0.5)))
	require.NoError(t, err)
	return a
}

func TestAddLayerConnectsToRoot(t *testing.T) {
	a := newTestAnimator(t)

	require.Equal(t, 2, a.LayerCount())
	assert.Equal(t, 2, a.Output().InputCount())
	for i := 0; i < a.LayerCount(); i++ {
		assert.Same(t, a.Output(), a.Layer(i).Output().Output())
		assert.Equal(t, float32(1), a.LayerWeight(i))
	}
	assert.Equal(t, "upper", a.LayerByName("upper").Name())
	assert.Nil(t, a.LayerByName("missing"))
}

func TestUpdateAdvancesEveryLayer(t *testing.T) {
	for _, tc := range []struct {
		name    string
		options []animator.AnimatorBuilderOption
	}{
		{name: "sequential"},
		{name: "parallel", options: []animator.AnimatorBuilderOption{animator.WithParallelLayers(2)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAnimator(t, tc.options...)
			require.NotNil(t, a.Play(1, "wave"))

			for i := 0; i < 4; i++ {
				a.Update(0.125)
			}

			assert.Equal(t, float32(0.5), a.Clock())
			assert.Equal(t, float32(0.5), a.Layer(0).StateTime(0))
			assert.Equal(t, float32(0.5), a.Layer(1).Clock())
			assert.Equal(t, []float32{0, 1}, a.Layer(1).Weights())
		})
	}
}

func TestSetBlendVarFansOut(t *testing.T) {
	a := newTestAnimator(t)

	assert.Equal(t, 1, a.SetBlendVar("speed", 1))
	assert.Equal(t, float32(0.5), a.Layer(0).StateDuration(1))

	v, ok := a.Layer(1).BlendVar("speed")
	assert.True(t, ok, "every layer keeps the value")
	assert.Equal(t, float32(1), v)
}

func TestLayerWeightAndBounds(t *testing.T) {
	buf := &bytes.Buffer{}
	a := newTestAnimator(t, animator.WithLogger(slog.New(slog.NewTextHandler(buf, nil))))

	assert.True(t, a.SetLayerWeight(1, 1.5))
	assert.Equal(t, float32(1), a.LayerWeight(1))
	assert.True(t, a.SetLayerWeight(1, 0.25))
	assert.Equal(t, float32(0.25), a.LayerWeight(1))

	assert.False(t, a.SetLayerWeight(2, 1))
	assert.Nil(t, a.Play(-1, "idle"))
	assert.Nil(t, a.Layer(7))
	assert.Nil(t, a.Play(0, "swim"))
	assert.Contains(t, buf.String(), "layer index 2 out of range")
	assert.Contains(t, buf.String(), "unknown state")
}

func TestWeightBufferStaging(t *testing.T) {
	wb := weight_buffer.NewWeightBuffer(2, weight_buffer.WithStride(4))
	a := newTestAnimator(t, animator.WithWeightBuffer(wb))
	a.Update(0.25)
	require.Len(t, a.StagedWriteData(), 2)

	a.Play(1, "wave")
	a.Update(0.25)
	writes := a.StagedWriteData()

	require.Len(t, writes, 2, "playback times move every frame")
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Equal(t, uint64(4*16), writes[1].Offset)
	entries := wb.Entries(1)
	assert.InDelta(t, 0.5, entries[0].Weight, 1e-6)
	assert.InDelta(t, 0.5, entries[1].Weight, 1e-6)
	assert.Equal(t, weight_buffer.FlagCurrent, entries[1].Flags)
	assert.Equal(t, uint32(1), entries[1].Slot)
	assert.Equal(t, float32(0.25), entries[1].Time)
}

func TestProfilingRecordsLayers(t *testing.T) {
	p := profiler.NewProfiler(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	p.SetInterval(time.Hour)
	a := newTestAnimator(t, animator.WithProfiling(p))

	a.Update(0.1)
	a.Update(0.1)

	stats := p.LayerStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "base", stats[0].Layer)
	assert.Equal(t, 2, stats[0].Updates)
}

func TestDestroy(t *testing.T) {
	a := newTestAnimator(t)
	require.NotZero(t, a.Graph().NodeCount())

	a.Destroy()
	assert.Equal(t, 0, a.Graph().NodeCount())
	assert.Equal(t, 0, a.LayerCount())
}
