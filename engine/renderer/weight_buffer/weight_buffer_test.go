package weight_buffer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	w := NewWeightBuffer(3, WithStride(4), WithLabel("Hero Weights"))

	desc := w.Descriptor()
	assert.Equal(t, "Hero Weights", desc.Label)
	assert.Equal(t, uint64(3*4*16), desc.Size)
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, desc.Usage)
	assert.False(t, desc.MappedAtCreation)
}

func TestStagedWritesOnlyForDirtyLayers(t *testing.T) {
	w := NewWeightBuffer(2, WithStride(2))
	require.Len(t, w.StagedWriteData(), 2, "every layer starts dirty")
	assert.Empty(t, w.StagedWriteData())

	entries := []GPUStateWeight{{Weight: 0.25, Time: 1.5, Slot: 0, Flags: FlagCurrent}, {Weight: 0.75, Slot: 1}}
	require.True(t, w.StageLayer(1, entries))

	writes := w.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(2*16), writes[0].Offset)
	require.Len(t, writes[0].Data, 32)
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(writes[0].Data[0:4])))
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(writes[0].Data[4:8])))
	assert.Equal(t, FlagCurrent, binary.LittleEndian.Uint32(writes[0].Data[12:16]))

	require.True(t, w.StageLayer(1, entries))
	assert.Empty(t, w.StagedWriteData(), "unchanged entries are not re-uploaded")
}

func TestStagedDataIsACopy(t *testing.T) {
	w := NewWeightBuffer(1, WithStride(1))
	w.StageLayer(0, []GPUStateWeight{{Weight: 1}})
	writes := w.StagedWriteData()

	w.StageLayer(0, []GPUStateWeight{{Weight: 0.5}})
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(writes[0].Data[0:4])))
}

func TestStageLayerTruncatesAndClears(t *testing.T) {
	w := NewWeightBuffer(1, WithStride(2))

	assert.False(t, w.StageLayer(0, []GPUStateWeight{{Weight: 1}, {Weight: 2}, {Weight: 3}}))
	assert.Equal(t, []GPUStateWeight{{Weight: 1}, {Weight: 2}}, w.Entries(0))

	assert.True(t, w.StageLayer(0, []GPUStateWeight{{Weight: 1}}))
	assert.Equal(t, []GPUStateWeight{{Weight: 1}, {}}, w.Entries(0), "stale slots are zeroed")

	assert.False(t, w.StageLayer(5, nil))
	assert.Nil(t, w.Entries(-1))
}
