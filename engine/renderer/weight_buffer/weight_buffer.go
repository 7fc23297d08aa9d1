package weight_buffer

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// FlagTransient marks a slot holding a transient overflow node.
	FlagTransient uint32 = 1 << iota
	// FlagCurrent marks the slot of the layer's current state.
	FlagCurrent
)

// GPUStateWeight is the std430 layout of one mixer slot as read by a skinning or pose compute shader.
type GPUStateWeight struct {
	Weight float32
	Time   float32
	Slot   uint32
	Flags  uint32
}

// BufferWrite describes a single GPU buffer write operation at a given byte offset.
type BufferWrite struct {
	Buffer *wgpu.Buffer
	Offset uint64
	Data   []byte
}

// weightBuffer is the implementation of the WeightBuffer interface.
type weightBuffer struct {
	mu     sync.Mutex
	label  string
	layers int
	stride int
	data   []GPUStateWeight
	dirty  []bool
	buffer *wgpu.Buffer
}

// WeightBuffer stages the per-slot weights of every layer of an animator into one storage buffer. Each layer
// owns a fixed run of Stride entries; unused entries are zeroed.
//
// Staging and draining are safe to call from different goroutines.
type WeightBuffer interface {
	// Label returns the label used for the GPU buffer.
	Label() string

	// LayerCount returns the number of layer runs in the buffer.
	LayerCount() int

	// Stride returns the number of entries reserved per layer.
	Stride() int

	// Size returns the buffer size in bytes.
	Size() uint64

	// Descriptor returns the descriptor a renderer uses to create the storage buffer.
	//
	// Returns:
	//   - wgpu.BufferDescriptor: the storage | copy-dst descriptor sized for every layer
	Descriptor() wgpu.BufferDescriptor

	// CreateBuffer creates the GPU buffer on device and stores it as the write target.
	//
	// Parameters:
	//   - device: the device to allocate on
	//
	// Returns:
	//   - error: an error if the buffer could not be created
	CreateBuffer(device *wgpu.Device) error

	// SetBuffer sets the GPU buffer targeted by staged writes.
	//
	// Parameters:
	//   - buf: the buffer
	SetBuffer(buf *wgpu.Buffer)

	// Buffer returns the GPU buffer targeted by staged writes, nil before one is set.
	Buffer() *wgpu.Buffer

	// StageLayer copies entries into the run of the given layer and marks it dirty when anything changed.
	// Entries past Stride are dropped.
	//
	// Parameters:
	//   - layer: the layer index
	//   - entries: the slot entries in mixer slot order
	//
	// Returns:
	//   - bool: false if layer is out of range or entries were truncated
	StageLayer(layer int, entries []GPUStateWeight) bool

	// Entries returns a copy of the staged run of the given layer.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - []GPUStateWeight: the entries, nil when out of range
	Entries(layer int) []GPUStateWeight

	// StagedWriteData returns and clears the pending writes, one per dirty layer.
	StagedWriteData() []BufferWrite

	// Release frees the GPU buffer.
	Release()
}

var _ WeightBuffer = &weightBuffer{}

// entrySize is the byte size of one GPUStateWeight.
const entrySize = uint64(unsafe.Sizeof(GPUStateWeight{}))

// NewWeightBuffer creates a WeightBuffer for the given number of layers.
//
// Parameters:
//   - layers: the number of layers
//   - options: variadic list of WeightBufferBuilderOption functions to configure the WeightBuffer
//
// Returns:
//   - WeightBuffer: the new weight buffer
func NewWeightBuffer(layers int, options ...WeightBufferBuilderOption) WeightBuffer {
	w := &weightBuffer{
		label:  "Layer Weights",
		layers: max(layers, 1),
		stride: 16,
	}
	for _, opt := range options {
		opt(w)
	}
	w.data = make([]GPUStateWeight, w.layers*w.stride)
	w.dirty = make([]bool, w.layers)
	for i := range w.dirty {
		w.dirty[i] = true
	}
	return w
}

func (w *weightBuffer) Label() string {
	return w.label
}

func (w *weightBuffer) LayerCount() int {
	return w.layers
}

func (w *weightBuffer) Stride() int {
	return w.stride
}

func (w *weightBuffer) Size() uint64 {
	return uint64(len(w.data)) * entrySize
}

func (w *weightBuffer) Descriptor() wgpu.BufferDescriptor {
	return wgpu.BufferDescriptor{
		Label:            w.label,
		Size:             w.Size(),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	}
}

func (w *weightBuffer) CreateBuffer(device *wgpu.Device) error {
	desc := w.Descriptor()
	buf, err := device.CreateBuffer(&desc)
	if err != nil {
		return fmt.Errorf("weight buffer %q: %w", w.label, err)
	}
	w.SetBuffer(buf)
	return nil
}

func (w *weightBuffer) SetBuffer(buf *wgpu.Buffer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = buf
	for i := range w.dirty {
		w.dirty[i] = true
	}
}

func (w *weightBuffer) Buffer() *wgpu.Buffer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer
}

func (w *weightBuffer) StageLayer(layer int, entries []GPUStateWeight) bool {
	if layer < 0 || layer >= w.layers {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	run := w.data[layer*w.stride : (layer+1)*w.stride]
	n := min(len(entries), w.stride)
	changed := false
	for i := range run {
		var e GPUStateWeight
		if i < n {
			e = entries[i]
		}
		if run[i] != e {
			run[i] = e
			changed = true
		}
	}
	if changed {
		w.dirty[layer] = true
	}
	return len(entries) <= w.stride
}

func (w *weightBuffer) Entries(layer int) []GPUStateWeight {
	if layer < 0 || layer >= w.layers {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]GPUStateWeight, w.stride)
	copy(out, w.data[layer*w.stride:(layer+1)*w.stride])
	return out
}

func (w *weightBuffer) StagedWriteData() []BufferWrite {
	w.mu.Lock()
	defer w.mu.Unlock()

	var writes []BufferWrite
	for layer, dirty := range w.dirty {
		if !dirty {
			continue
		}
		run := w.data[layer*w.stride : (layer+1)*w.stride]
		// SliceToBytes aliases run, which is rewritten on the next StageLayer.
		data := append([]byte(nil), common.SliceToBytes(run)...)
		writes = append(writes, BufferWrite{
			Buffer: w.buffer,
			Offset: uint64(layer*w.stride) * entrySize,
			Data:   data,
		})
		w.dirty[layer] = false
	}
	return writes
}

func (w *weightBuffer) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buffer != nil {
		w.buffer.Release()
		w.buffer = nil
	}
}

// Submit writes every staged write with a target buffer to queue.
//
// Parameters:
//   - queue: the device queue
//   - writes: the writes returned by StagedWriteData
func Submit(queue *wgpu.Queue, writes []BufferWrite) {
	for _, wr := range writes {
		if wr.Buffer == nil {
			continue
		}
		queue.WriteBuffer(wr.Buffer, wr.Offset, wr.Data)
	}
}
