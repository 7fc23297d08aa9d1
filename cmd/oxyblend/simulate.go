package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-blend/engine"
	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
	"github.com/Carmen-Shannon/oxy-blend/engine/layer"
	"github.com/Carmen-Shannon/oxy-blend/engine/loader"
	"github.com/Carmen-Shannon/oxy-blend/engine/metrics"
	"github.com/Carmen-Shannon/oxy-blend/engine/profiler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <file>",
	Short: "Run a fixed-step simulation and print layer weights",
	Long: `Builds every layer of the definition into one animator and advances it frame by frame.

Plays and queued plays are scheduled per frame:
  --play 10:base:move             play "move" on layer "base" before frame 10
  --queue 0:upper:wave:done       queue "wave" to fire when the current state finishes
  --queue 0:base:idle:after=0.5   fire 0.5s after reaching the head of the queue
  --queue 0:base:idle:queued=0.5  fire 0.5s after being queued
  --queue 0:base:idle:before=0.2  fire 0.2s before the current state finishes
  --queue 0:base:idle:fraction=0.1  fire when a tenth of the current state remains
Blend variables are set before the first frame with --var speed=0.5.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := simulateOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runSimulate(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
	},
}

func init() {
	simulateCmd.Flags().Int("frames", 60, "Number of frames to simulate")
	simulateCmd.Flags().Float32("dt", 1.0/60.0, "Frame step in seconds")
	simulateCmd.Flags().Int("every", 1, "Print every n-th frame")
	simulateCmd.Flags().StringArray("play", nil, "frame:layer:state to play")
	simulateCmd.Flags().StringArray("queue", nil, "frame:layer:state:instruction to queue")
	simulateCmd.Flags().StringArray("var", nil, "name=value blend variable")
	simulateCmd.Flags().Int("parallel", 0, "Update layers on this many workers")
	simulateCmd.Flags().Bool("metrics", false, "Print transition and queue counters after the run")
	simulateCmd.Flags().Bool("profile", false, "Log per-layer update timings")
	simulateCmd.Flags().Bool("realtime", false, "Tick at 1/dt per second instead of as fast as possible")
	rootCmd.AddCommand(simulateCmd)
}

type simulateOptions struct {
	frames   int
	dt       float32
	every    int
	actions  []frameAction
	vars     map[string]float32
	parallel int
	metrics  bool
	profile  bool
	realtime bool
}

// frameAction is a play or queued play scheduled before a frame's update.
type frameAction struct {
	frame       int
	layer       string
	state       string
	instruction *layer.Instruction
}

func simulateOptionsFromFlags(cmd *cobra.Command) (simulateOptions, error) {
	f := cmd.Flags()
	opts := simulateOptions{vars: map[string]float32{}}
	opts.frames, _ = f.GetInt("frames")
	opts.dt, _ = f.GetFloat32("dt")
	opts.every, _ = f.GetInt("every")
	opts.parallel, _ = f.GetInt("parallel")
	opts.metrics, _ = f.GetBool("metrics")
	opts.profile, _ = f.GetBool("profile")
	opts.realtime, _ = f.GetBool("realtime")
	if opts.frames < 0 || opts.dt <= 0 || opts.every < 1 {
		return opts, fmt.Errorf("frames must be >= 0, dt > 0 and every >= 1")
	}

	plays, _ := f.GetStringArray("play")
	for _, p := range plays {
		a, err := parsePlay(p)
		if err != nil {
			return opts, err
		}
		opts.actions = append(opts.actions, a)
	}
	queues, _ := f.GetStringArray("queue")
	for _, q := range queues {
		a, err := parseQueue(q)
		if err != nil {
			return opts, err
		}
		opts.actions = append(opts.actions, a)
	}
	vars, _ := f.GetStringArray("var")
	for _, v := range vars {
		name, value, err := parseVar(v)
		if err != nil {
			return opts, err
		}
		opts.vars[name] = value
	}
	return opts, nil
}

func parsePlay(spec string) (frameAction, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return frameAction{}, fmt.Errorf("play %q: want frame:layer:state", spec)
	}
	frame, err := strconv.Atoi(parts[0])
	if err != nil || frame < 0 {
		return frameAction{}, fmt.Errorf("play %q: bad frame %q", spec, parts[0])
	}
	return frameAction{frame: frame, layer: parts[1], state: parts[2]}, nil
}

func parseQueue(spec string) (frameAction, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return frameAction{}, fmt.Errorf("queue %q: want frame:layer:state:instruction", spec)
	}
	a, err := parsePlay(strings.Join(parts[:3], ":"))
	if err != nil {
		return frameAction{}, fmt.Errorf("queue %q: %w", spec, err)
	}
	in, err := parseInstruction(parts[3])
	if err != nil {
		return frameAction{}, fmt.Errorf("queue %q: %w", spec, err)
	}
	a.instruction = &in
	return a, nil
}

func parseInstruction(s string) (layer.Instruction, error) {
	if s == "done" {
		return layer.WhenCurrentStateDone(), nil
	}
	kind, arg, ok := strings.Cut(s, "=")
	if !ok {
		return layer.Instruction{}, fmt.Errorf("unknown instruction %q", s)
	}
	v, err := strconv.ParseFloat(arg, 32)
	if err != nil {
		return layer.Instruction{}, fmt.Errorf("instruction %q: %w", s, err)
	}
	f := float32(v)
	switch kind {
	case "after":
		return layer.AfterSeconds(f, false), nil
	case "queued":
		return layer.AfterSeconds(f, true), nil
	case "before":
		return layer.SecondsBeforeCurrentDone(f), nil
	case "fraction":
		return layer.FractionBeforeCurrentDone(f), nil
	default:
		return layer.Instruction{}, fmt.Errorf("unknown instruction %q", s)
	}
}

func parseVar(spec string) (string, float32, error) {
	name, arg, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return "", 0, fmt.Errorf("var %q: want name=value", spec)
	}
	v, err := strconv.ParseFloat(arg, 32)
	if err != nil {
		return "", 0, fmt.Errorf("var %q: %w", spec, err)
	}
	return name, float32(v), nil
}

func runSimulate(ctx context.Context, out io.Writer, path string, opts simulateOptions) error {
	logger := slog.Default()
	def, err := loader.NewLoader(loader.BackendTypeYAML, loader.WithLogger(logger)).Load(path)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	animOpts := []animator.AnimatorBuilderOption{animator.WithLogger(logger), animator.WithMetrics(m)}
	if opts.parallel > 0 {
		animOpts = append(animOpts, animator.WithParallelLayers(opts.parallel))
	}
	if opts.profile {
		animOpts = append(animOpts, animator.WithProfiling(profiler.NewProfiler(logger)))
	}

	a := animator.NewAnimator(nil, animOpts...)
	defer a.Destroy()
	if _, err := def.Attach(a); err != nil {
		return err
	}

	names := make([]string, 0, len(opts.vars))
	for name := range opts.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if a.SetBlendVar(name, opts.vars[name]) == 0 {
			logger.Warn("simulate: blend variable has no readers", "var", name)
		}
	}

	byFrame := make(map[int][]frameAction, len(opts.actions))
	for _, act := range opts.actions {
		byFrame[act.frame] = append(byFrame[act.frame], act)
	}

	e := engine.NewEngine(
		engine.WithLogger(logger),
		engine.WithTickRate(1/float64(opts.dt)),
		engine.WithFixedStep(opts.dt),
		engine.WithAnimator(0, a),
	)
	frame := 0
	var actionErr error
	e.SetTickCallback(func(float32) {
		for _, act := range byFrame[frame] {
			if err := apply(a, act); err != nil && actionErr == nil {
				actionErr = fmt.Errorf("frame %d: %w", frame, err)
				e.Quit()
			}
		}
	})
	e.SetPostTickCallback(func(float32) {
		if frame%opts.every == 0 || frame == opts.frames-1 {
			printFrame(out, frame, a)
		}
		frame++
		if frame >= opts.frames {
			e.Quit()
		}
	})

	switch {
	case opts.frames == 0:
	case opts.realtime:
		if err := e.Run(ctx); err != nil {
			return err
		}
	default:
		for frame < opts.frames && actionErr == nil {
			e.Step(opts.dt)
		}
	}
	if actionErr != nil {
		return actionErr
	}

	if opts.metrics {
		return printMetrics(out, reg)
	}
	return nil
}

func apply(a animator.Animator, act frameAction) error {
	l := a.LayerByName(act.layer)
	if l == nil {
		return fmt.Errorf("unknown layer %q", act.layer)
	}
	index := l.StateIndex(act.state)
	if index < 0 {
		return fmt.Errorf("layer %q: unknown state %q", act.layer, act.state)
	}
	if act.instruction == nil {
		l.Play(index)
		return nil
	}
	l.QueueStateChange(index, *act.instruction)
	return nil
}

func printFrame(out io.Writer, frame int, a animator.Animator) {
	for i := 0; i < a.LayerCount(); i++ {
		l := a.Layer(i)
		current := "-"
		if idx := l.CurrentState(); idx >= 0 {
			current = l.State(idx).Name()
		}
		weights := make([]string, 0, l.NodeCount())
		for _, w := range l.NodeWeights() {
			weights = append(weights, strconv.FormatFloat(float64(w), 'f', 3, 32))
		}
		fmt.Fprintf(out, "frame=%d t=%.3f layer=%s state=%s transitioning=%t queued=%d weights=[%s]\n",
			frame, a.Clock(), l.Name(), current, l.IsTransitioning(), l.QueuedCount(), strings.Join(weights, " "))
	}
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+strconv.Quote(lp.GetValue()))
			}
			value := metric.GetCounter().GetValue()
			if h := metric.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			fmt.Fprintf(out, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
