package profiler

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Profiler tracks frame rate, memory statistics and per-layer update timings for performance monitoring.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	mu             sync.Mutex
	logger         *slog.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	timings        map[string]*timing
}

type timing struct {
	count int
	total time.Duration
	max   time.Duration
}

// LayerStats is the aggregated update timing of one layer over a profiling interval.
type LayerStats struct {
	Layer   string
	Updates int
	Avg     time.Duration
	Max     time.Duration
}

// NewProfiler creates a new Profiler logging through logger. A nil logger uses slog.Default().
// Update interval defaults to 1 second.
//
// Parameters:
//   - logger: the logger stats are written to
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiler{
		logger:         logger,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		timings:        make(map[string]*timing),
	}
}

// SetInterval sets how often Tick logs.
//
// Parameters:
//   - d: the interval, 0 logs on every tick
func (p *Profiler) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateInterval = d
}

// RecordLayer adds one layer update duration to the current interval. Safe for concurrent use.
//
// Parameters:
//   - layer: the layer name
//   - d: how long the update took
func (p *Profiler) RecordLayer(layer string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.timings[layer]
	if !ok {
		t = &timing{}
		p.timings[layer] = t
	}
	t.count++
	t.total += d
	if d > t.max {
		t.max = d
	}
}

// LayerStats returns the layer timings collected since the last logged interval, sorted by layer name.
func (p *Profiler) LayerStats() []LayerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layerStatsLocked()
}

func (p *Profiler) layerStatsLocked() []LayerStats {
	out := make([]LayerStats, 0, len(p.timings))
	for name, t := range p.timings {
		s := LayerStats{Layer: name, Updates: t.count, Max: t.max}
		if t.count > 0 {
			s.Avg = t.total / time.Duration(t.count)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory and the average and
// maximum update time of every layer.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	seconds := max(elapsed.Seconds(), 1e-9)
	fps := float64(p.frameCount) / seconds

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logger.Info("profiler",
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_pause_us", lastPauseUs,
		"gc_max_pause_us", maxPauseUs,
		"sys_mb", sysMB,
	)
	for _, s := range p.layerStatsLocked() {
		p.logger.Info("profiler layer",
			"layer", s.Layer,
			"updates", s.Updates,
			"avg_us", s.Avg.Microseconds(),
			"max_us", s.Max.Microseconds(),
		)
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.timings = make(map[string]*timing)
	return true
}
