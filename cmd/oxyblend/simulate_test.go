package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-blend/engine/layer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitionPath = "../../examples/character.yaml"

func TestParsePlay(t *testing.T) {
	a, err := parsePlay("12:base:move")
	require.NoError(t, err)
	assert.Equal(t, frameAction{frame: 12, layer: "base", state: "move"}, a)

	for _, bad := range []string{"base:move", "x:base:move", "-1:base:move", "1:base:move:done"} {
		_, err := parsePlay(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseQueue(t *testing.T) {
	for _, tc := range []struct {
		spec string
		want layer.Instruction
	}{
		{spec: "0:base:idle:done", want: layer.WhenCurrentStateDone()},
		{spec: "0:base:idle:after=0.5", want: layer.AfterSeconds(0.5, false)},
		{spec: "0:base:idle:queued=0.5", want: layer.AfterSeconds(0.5, true)},
		{spec: "0:base:idle:before=0.2", want: layer.SecondsBeforeCurrentDone(0.2)},
		{spec: "0:base:idle:fraction=0.1", want: layer.FractionBeforeCurrentDone(0.1)},
	} {
		t.Run(tc.spec, func(t *testing.T) {
			a, err := parseQueue(tc.spec)
			require.NoError(t, err)
			require.NotNil(t, a.instruction)
			assert.Equal(t, tc.want, *a.instruction)
			assert.Equal(t, "idle", a.state)
		})
	}

	for _, bad := range []string{"0:base:idle", "0:base:idle:soon", "0:base:idle:after=x", "0:base:idle:later=1"} {
		_, err := parseQueue(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseVar(t *testing.T) {
	name, v, err := parseVar("speed=0.75")
	require.NoError(t, err)
	assert.Equal(t, "speed", name)
	assert.Equal(t, float32(0.75), v)

	_, _, err = parseVar("speed")
	assert.Error(t, err)
	_, _, err = parseVar("=1")
	assert.Error(t, err)
}

func TestRunSimulatePrintsEveryLayer(t *testing.T) {
	play, err := parsePlay("0:base:move")
	require.NoError(t, err)
	queue, err := parseQueue("0:upper:wave:queued=0.1")
	require.NoError(t, err)

	var out bytes.Buffer
	err = runSimulate(context.Background(), &out, definitionPath, simulateOptions{
		frames:  10,
		dt:      0.05,
		every:   5,
		actions: []frameAction{play, queue},
		vars:    map[string]float32{"speed": 0.5},
		metrics: true,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "frame=0 t=0.050 layer=base state=move transitioning=true")
	assert.Contains(t, text, "frame=9 t=0.500 layer=base state=move transitioning=false")
	assert.Contains(t, text, "frame=9 t=0.500 layer=upper state=wave")
	assert.Contains(t, text, `oxyblend_queue_instructions_fired_total{layer="upper"} 1`)
	assert.Contains(t, text, `oxyblend_transitions_total{layer="base",type="curve"} 1`)
}

func TestRunSimulateParallel(t *testing.T) {
	var out bytes.Buffer
	err := runSimulate(context.Background(), &out, definitionPath, simulateOptions{frames: 3, dt: 0.1, every: 1, parallel: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(out.String(), "\n"), "one line per layer per frame")
}

func TestRunSimulateRealtime(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runSimulate(ctx, &out, definitionPath, simulateOptions{frames: 4, dt: 0.005, every: 1, realtime: true})
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), "frame=3 t=0.020 layer=upper")
}

func TestRunSimulateRejectsUnknownTargets(t *testing.T) {
	for _, act := range []frameAction{
		{frame: 0, layer: "legs", state: "idle"},
		{frame: 0, layer: "base", state: "swim"},
	} {
		err := runSimulate(context.Background(), &bytes.Buffer{}, definitionPath, simulateOptions{frames: 1, dt: 0.1, every: 1, actions: []frameAction{act}})
		assert.Error(t, err)
	}
}

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"validate", definitionPath})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "layer base: 5 states")
	assert.Contains(t, out.String(), "[1] move (blend_tree_1d, ")
	assert.Contains(t, out.String(), "is valid")
}

func TestValidateCommandFailsOnMissingFile(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"validate", "missing.yaml"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
