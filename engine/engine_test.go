package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-blend/engine"
	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
	"github.com/Carmen-Shannon/oxy-blend/engine/clip"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnimator(t *testing.T) animator.Animator {
	t.Helper()
	a := animator.NewAnimator(nil)
	_, err := a.AddLayer("base", []state.State{
		state.NewSingleClip("idle", clip.New("idle", 1)),
		state.NewSingleClip("walk", clip.New("walk", 1)),
	}, nil)
	require.NoError(t, err)
	return a
}

func TestStepOrdersCallbacksAndAnimators(t *testing.T) {
	first, second := newAnimator(t), newAnimator(t)
	e := engine.NewEngine(engine.WithAnimator(2, second), engine.WithAnimator(1, first))

	var calls []string
	e.SetTickCallback(func(dt float32) {
		calls = append(calls, "tick")
		assert.Equal(t, float32(0), first.Clock(), "tick runs before animators update")
	})
	e.SetPostTickCallback(func(dt float32) {
		calls = append(calls, "post")
		assert.Equal(t, float32(0.25), first.Clock())
		assert.Equal(t, float32(0.25), second.Clock())
	})

	e.Step(0.25)

	assert.Equal(t, []string{"tick", "post"}, calls)
	assert.Equal(t, uint64(1), e.Ticks())
}

func TestAnimatorRegistry(t *testing.T) {
	a := newAnimator(t)
	e := engine.NewEngine()

	e.AddAnimator(0, a)
	assert.Same(t, a, e.Animator(0))
	assert.Len(t, e.Animators(), 1)

	e.RemoveAnimator(0)
	assert.Nil(t, e.Animator(0))
	e.Step(0.1)
	assert.Equal(t, float32(0), a.Clock(), "removed animators are not updated")
}

func TestTickRate(t *testing.T) {
	assert.Equal(t, time.Second/60, engine.NewEngine().TickRate())
	assert.Equal(t, 10*time.Millisecond, engine.NewEngine(engine.WithTickRate(100)).TickRate())

	e := engine.NewEngine(engine.WithTickRate(-1))
	assert.Equal(t, time.Second/60, e.TickRate())
	e.SetTickRate(50)
	assert.Equal(t, 20*time.Millisecond, e.TickRate())
}

func TestRunWithFixedStepUntilQuit(t *testing.T) {
	a := newAnimator(t)
	e := engine.NewEngine(
		engine.WithTickRate(1000),
		engine.WithFixedStep(0.5),
		engine.WithAnimator(0, a),
	)
	e.SetPostTickCallback(func(float32) {
		if e.Ticks() == 3 {
			e.Quit()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))

	assert.Equal(t, uint64(4), e.Ticks(), "the post-tick callback sees the count before its own tick")
	assert.Equal(t, float32(2), a.Clock())
	e.Quit()
}

func TestRunStopsOnContext(t *testing.T) {
	e := engine.NewEngine(engine.WithTickRate(1000))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, e.Run(ctx), context.DeadlineExceeded)
}

func TestRunRecoversTickPanic(t *testing.T) {
	e := engine.NewEngine(engine.WithTickRate(1000))
	e.SetTickCallback(func(float32) { panic("broken layer") })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := e.Run(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken layer")
}
