package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickLogsAfterInterval(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProfiler(slog.New(slog.NewTextHandler(buf, nil)))

	assert.False(t, p.Tick(), "default interval has not elapsed")

	p.SetInterval(0)
	p.RecordLayer("base", 2*time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "layer=base")
	assert.Empty(t, p.LayerStats(), "timings reset after logging")
}

func TestLayerStats(t *testing.T) {
	p := NewProfiler(nil)
	p.RecordLayer("upper", 3*time.Millisecond)
	p.RecordLayer("base", 1*time.Millisecond)
	p.RecordLayer("base", 3*time.Millisecond)

	stats := p.LayerStats()
	require.Len(t, stats, 2)
	assert.Equal(t, LayerStats{Layer: "base", Updates: 2, Avg: 2 * time.Millisecond, Max: 3 * time.Millisecond}, stats[0])
	assert.Equal(t, "upper", stats[1].Layer)
}
