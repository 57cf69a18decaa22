package common

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultEpsilon is the tolerance used for float comparisons throughout the engine.
const DefaultEpsilon float32 = 1e-5

// MulElem multiplies two vectors component-wise.
//
// Parameters:
//   - a: left-hand vector
//   - b: right-hand vector
//
// Returns:
//   - mgl32.Vec3: the component-wise product (a.x*b.x, a.y*b.y, a.z*b.z)
func MulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// LerpVec3 linearly interpolates between a and b.
//
// Parameters:
//   - a: value at t = 0
//   - b: value at t = 1
//   - t: interpolation factor, not clamped
//
// Returns:
//   - mgl32.Vec3: a + (b - a) * t
func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// SlerpQuat spherically interpolates between two rotations along the shortest arc.
// mgl32.QuatSlerp does not flip hemispheres, so the target is negated when the
// dot product is negative.
//
// Parameters:
//   - a: rotation at t = 0
//   - b: rotation at t = 1
//   - t: interpolation factor in [0, 1]
//
// Returns:
//   - mgl32.Quat: the normalized interpolated rotation
func SlerpQuat(a, b mgl32.Quat, t float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, t).Normalize()
}

// KeyframeSpan locates the pair of keyframes surrounding t in a sorted timestamp slice.
// Times before the first key clamp to (0, 0, 0); times after the last key clamp to the
// last index with a zero fraction.
//
// Parameters:
//   - times: keyframe timestamps sorted in non-decreasing order (must be non-empty)
//   - t: the query time
//
// Returns:
//   - int: index of the key at or before t
//   - int: index of the key after t (equal to the first index when clamped)
//   - float32: normalized position of t between the two keys in [0, 1]
func KeyframeSpan(times []float32, t float32) (int, int, float32) {
	n := len(times)
	if n == 0 || t <= times[0] {
		return 0, 0, 0
	}
	if t >= times[n-1] {
		return n - 1, n - 1, 0
	}

	// first index with times[i] > t
	next := sort.Search(n, func(i int) bool { return times[i] > t })
	prev := next - 1
	span := times[next] - times[prev]
	if span <= 0 {
		return next, next, 0
	}
	return prev, next, (t - times[prev]) / span
}

// ApproxEqualVec3 reports whether two vectors are equal within epsilon on every axis.
//
// Parameters:
//   - a: first vector
//   - b: second vector
//   - epsilon: per-component tolerance
//
// Returns:
//   - bool: true if |a[i] - b[i]| <= epsilon for all i
func ApproxEqualVec3(a, b mgl32.Vec3, epsilon float32) bool {
	for i := range 3 {
		if float32(math.Abs(float64(a[i]-b[i]))) > epsilon {
			return false
		}
	}
	return true
}

// IsFiniteVec3 reports whether every component of v is neither NaN nor infinite.
func IsFiniteVec3(v mgl32.Vec3) bool {
	for i := range 3 {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
