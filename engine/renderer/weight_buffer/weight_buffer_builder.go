package weight_buffer

// WeightBufferBuilderOption is a functional option for configuring a WeightBuffer during construction.
type WeightBufferBuilderOption func(*weightBuffer)

// WithLabel is an option builder that sets the GPU buffer label.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - WeightBufferBuilderOption: a function that applies the label to a weight buffer
func WithLabel(label string) WeightBufferBuilderOption {
	return func(w *weightBuffer) {
		w.label = label
	}
}

// WithStride is an option builder that sets the number of entries reserved per layer. Defaults to 16.
// Layers with more mixer slots than the stride have their extra slots dropped.
//
// Parameters:
//   - stride: entries per layer (minimum 1)
//
// Returns:
//   - WeightBufferBuilderOption: a function that applies the stride to a weight buffer
func WithStride(stride int) WeightBufferBuilderOption {
	return func(w *weightBuffer) {
		if stride < 1 {
			stride = 1
		}
		w.stride = stride
	}
}
