package clip

import (
	"sort"
)

// Keyframe is a single control point on a Curve.
type Keyframe struct {
	// Time is the keyframe position on the curve's horizontal axis.
	Time float32

	// Value is the curve value at Time.
	Value float32

	// InTangent and OutTangent are the slopes entering and leaving the keyframe.
	InTangent, OutTangent float32
}

// Curve is a keyframed cubic Hermite curve. Transitions use it to remap linear progress in [0, 1].
type Curve struct {
	keys []Keyframe
}

// NewCurve builds a curve from keyframes. Keys are sorted by time.
//
// Parameters:
//   - keys: the control points, at least one
//
// Returns:
//   - *Curve: the curve, or nil if no keys were given
func NewCurve(keys ...Keyframe) *Curve {
	if len(keys) == 0 {
		return nil
	}
	sorted := make([]Keyframe, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &Curve{keys: sorted}
}

// LinearCurve returns a straight line from (0, 0) to (1, 1).
func LinearCurve() *Curve {
	return NewCurve(
		Keyframe{Time: 0, Value: 0, InTangent: 1, OutTangent: 1},
		Keyframe{Time: 1, Value: 1, InTangent: 1, OutTangent: 1},
	)
}

// EaseInOutCurve returns a smoothstep-shaped curve from (0, 0) to (1, 1) with flat tangents at both ends.
func EaseInOutCurve() *Curve {
	return NewCurve(
		Keyframe{Time: 0, Value: 0},
		Keyframe{Time: 1, Value: 1},
	)
}

// Keys returns a copy of the curve's keyframes.
func (c *Curve) Keys() []Keyframe {
	out := make([]Keyframe, len(c.keys))
	copy(out, c.keys)
	return out
}

// Evaluate samples the curve at t. Values before the first key and after the last key are held constant.
//
// Parameters:
//   - t: the sample position
//
// Returns:
//   - float32: the curve value at t
func (c *Curve) Evaluate(t float32) float32 {
	n := len(c.keys)
	if n == 0 {
		return t
	}
	if t <= c.keys[0].Time {
		return c.keys[0].Value
	}
	if t >= c.keys[n-1].Time {
		return c.keys[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return c.keys[i].Time > t }) - 1
	a, b := c.keys[i], c.keys[i+1]
	dt := b.Time - a.Time
	if dt <= 0 {
		return b.Value
	}
	s := (t - a.Time) / dt
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*a.Value + h10*dt*a.OutTangent + h01*b.Value + h11*dt*b.InTangent
}
