// Package clip holds the leaf assets the state engine plays: clips, easing curves and the clip-swap provider.
package clip

// Clip is an opaque animation clip as seen by the state engine. Only its length matters here; the pose data
// lives with the host engine. Clips are compared by pointer identity.
type Clip struct {
	// Name is the clip identifier (for debugging and lookups).
	Name string

	// Duration is the total length of the clip in seconds.
	Duration float32
}

// New returns a clip with the given name and duration.
//
// Parameters:
//   - name: the clip identifier
//   - duration: the clip length in seconds
//
// Returns:
//   - *Clip: the new clip
func New(name string, duration float32) *Clip {
	return &Clip{Name: name, Duration: duration}
}

// Swapper substitutes clips at node build time. It lets a host swap clips for cosmetic reasons (a different
// walk for a different outfit) without touching authored state data.
type Swapper interface {
	// Swap returns the clip to play in place of original. Implementations return original when no
	// substitute is registered.
	//
	// Parameters:
	//   - original: the authored clip
	//
	// Returns:
	//   - *Clip: the clip to build the node from
	Swap(original *Clip) *Clip
}

// SwapMap is a Swapper backed by a map from authored clip to substitute.
type SwapMap map[*Clip]*Clip

var _ Swapper = SwapMap{}

func (m SwapMap) Swap(original *Clip) *Clip {
	if sub, ok := m[original]; ok && sub != nil {
		return sub
	}
	return original
}

// Resolve applies s to c, tolerating a nil Swapper.
//
// Parameters:
//   - s: the swapper, may be nil
//   - c: the authored clip
//
// Returns:
//   - *Clip: the substitute, or c when s is nil or has no entry
func Resolve(s Swapper, c *Clip) *Clip {
	if s == nil {
		return c
	}
	return s.Swap(c)
}
