package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-blend/engine/animator"
)

// engine implements the Engine interface.
// Owns the tick loop and the animators it drives.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	logger *slog.Logger

	engineTickRate   time.Duration
	fixedStep        float32 // when > 0, every tick advances by exactly this many seconds
	tickCallback     func(deltaTime float32)
	postTickCallback func(deltaTime float32)

	animators map[int]animator.Animator
	ticks     uint64
}

// Engine drives a set of animators at a fixed tick rate.
// Each tick runs the tick callback (game logic issuing plays and blend variables), then updates every
// registered animator in ascending key order, then runs the post-tick callback (GPU uploads, inspection).
// The loop is owned by the caller: nothing updates until Run or Step is called.
type Engine interface {
	// SetTickRate sets the engine tick rate in ticks per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// TickRate returns the interval between ticks.
	//
	// Returns:
	//   - time.Duration: the tick interval
	TickRate() time.Duration

	// SetTickCallback registers the function called at the start of each tick, before animators update.
	//
	// Parameters:
	//   - callback: function receiving the tick delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetPostTickCallback registers the function called at the end of each tick, after animators update.
	//
	// Parameters:
	//   - callback: function receiving the tick delta time in seconds
	SetPostTickCallback(callback func(deltaTime float32))

	// AddAnimator registers an animator at the given key, replacing any animator already there.
	// Animators update in ascending key order.
	//
	// Parameters:
	//   - key: the update order key (lower updates first)
	//   - a: the animator
	AddAnimator(key int, a animator.Animator)

	// RemoveAnimator removes the animator at the given key. The animator is not destroyed.
	//
	// Parameters:
	//   - key: the key of the animator to remove
	RemoveAnimator(key int)

	// Animator retrieves the animator registered at the given key, or nil.
	//
	// Parameters:
	//   - key: the key of the animator to retrieve
	//
	// Returns:
	//   - animator.Animator: the animator at the key, or nil if not found
	Animator(key int) animator.Animator

	// Animators returns a copy of all registered animators keyed by update order.
	//
	// Returns:
	//   - map[int]animator.Animator: a copy of the animators map
	Animators() map[int]animator.Animator

	// Step runs one tick synchronously with the given delta time.
	//
	// Parameters:
	//   - deltaTime: the tick delta time in seconds
	Step(deltaTime float32)

	// Ticks returns the number of ticks run so far.
	Ticks() uint64

	// Run starts the tick loop and blocks until ctx is done or Quit is called. A panic inside a tick stops
	// the loop and is returned as an error.
	//
	// Parameters:
	//   - ctx: the context bounding the loop
	//
	// Returns:
	//   - error: ctx.Err() when the context ended the loop, the recovered panic, or nil after Quit
	Run(ctx context.Context) error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times and from inside callbacks; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (tick rate, fixed step, animators)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		logger:          slog.Default(),
		engineTickRate:  time.Second / 60,
		animators:       make(map[int]animator.Animator),
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

// Quit signals the tick loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run(ctx context.Context) (err error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine: already running")
	}
	e.running = true
	rate := e.engineTickRate
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()
	// Recover from panics inside a tick so a broken layer stops the loop instead of the process.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine: tick panicked", "panic", r, "tick", e.Ticks())
			err = fmt.Errorf("engine: tick panicked: %v", r)
		}
	}()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()
	e.logger.Debug("engine: running", "tick_rate", rate, "fixed_step", e.fixedStep)

	for {
		// Quit and cancellation win over a tick that became ready at the same time.
		select {
		case <-e.quitChannel:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quitChannel:
			return nil
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now
			if e.fixedStep > 0 {
				dt = e.fixedStep
			}
			e.Step(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

func (e *engine) Step(deltaTime float32) {
	e.mu.Lock()
	tick, post := e.tickCallback, e.postTickCallback
	e.mu.Unlock()

	if tick != nil {
		tick(deltaTime)
	}

	for _, a := range e.ordered() {
		a.Update(deltaTime)
	}

	if post != nil {
		post(deltaTime)
	}

	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()
}

// ordered snapshots the animators in ascending key order so callbacks may add or remove animators mid-tick.
func (e *engine) ordered() []animator.Animator {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.animators))
	for k := range e.animators {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]animator.Animator, len(keys))
	for i, k := range keys {
		out[i] = e.animators[k]
	}
	return out
}

func (e *engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	running := e.running
	e.mu.Unlock()

	if running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	}
}

func (e *engine) TickRate() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engineTickRate
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	e.tickCallback = callback
	e.mu.Unlock()
}

func (e *engine) SetPostTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	e.postTickCallback = callback
	e.mu.Unlock()
}

func (e *engine) AddAnimator(key int, a animator.Animator) {
	e.mu.Lock()
	e.animators[key] = a
	e.mu.Unlock()
}

func (e *engine) RemoveAnimator(key int) {
	e.mu.Lock()
	delete(e.animators, key)
	e.mu.Unlock()
}

func (e *engine) Animator(key int) animator.Animator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.animators[key]
}

func (e *engine) Animators() map[int]animator.Animator {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := make(map[int]animator.Animator, len(e.animators))
	for k, v := range e.animators {
		cp[k] = v
	}
	return cp
}
