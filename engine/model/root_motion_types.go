package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidCurve is returned when curve data violates the curve invariants.
var ErrInvalidCurve = errors.New("invalid root motion curve")

// RootMotionBakeType selects how root motion is extracted from a clip.
type RootMotionBakeType int

const (
	// BakeTypeCenterOfGravity averages the root-relative positions of all mass-bearing nodes.
	BakeTypeCenterOfGravity RootMotionBakeType = iota

	// BakeTypeRootBone tracks the root-relative position of a single designated bone.
	BakeTypeRootBone
)

func (b RootMotionBakeType) String() string {
	switch b {
	case BakeTypeCenterOfGravity:
		return "cog"
	case BakeTypeRootBone:
		return "root_bone"
	default:
		return fmt.Sprintf("RootMotionBakeType(%d)", int(b))
	}
}

// MarshalText encodes the bake type as its persisted name.
func (b RootMotionBakeType) MarshalText() ([]byte, error) {
	switch b {
	case BakeTypeCenterOfGravity, BakeTypeRootBone:
		return []byte(b.String()), nil
	default:
		return nil, fmt.Errorf("unknown bake type %d", int(b))
	}
}

// UnmarshalText decodes a persisted bake type name.
func (b *RootMotionBakeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cog":
		*b = BakeTypeCenterOfGravity
	case "root_bone":
		*b = BakeTypeRootBone
	default:
		return fmt.Errorf("unknown bake type %q", string(text))
	}
	return nil
}

// Interpolation selects how a curve is evaluated between keys.
type Interpolation int

const (
	// InterpolationLinear blends linearly between neighbouring keys.
	InterpolationLinear Interpolation = iota

	// InterpolationStep holds the previous key's value until the next key.
	InterpolationStep
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationLinear:
		return "linear"
	case InterpolationStep:
		return "step"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(i))
	}
}

// MarshalText encodes the interpolation mode as its persisted name.
func (i Interpolation) MarshalText() ([]byte, error) {
	switch i {
	case InterpolationLinear, InterpolationStep:
		return []byte(i.String()), nil
	default:
		return nil, fmt.Errorf("unknown interpolation %d", int(i))
	}
}

// UnmarshalText decodes a persisted interpolation name.
func (i *Interpolation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "linear":
		*i = InterpolationLinear
	case "step":
		*i = InterpolationStep
	default:
		return fmt.Errorf("unknown interpolation %q", string(text))
	}
	return nil
}

// RootMotionCurve is an immutable, time-keyed translation curve.
// Timestamps start at 0 and never decrease; every timestamp has exactly one position.
type RootMotionCurve struct {
	timestamps    []float32
	positions     []mgl32.Vec3
	interpolation Interpolation
}

// NewRootMotionCurve validates and copies curve data into an immutable curve.
//
// Parameters:
//   - timestamps: key times in seconds, first must be 0, non-decreasing
//   - positions: one position per timestamp
//   - interpolation: evaluation mode between keys
//
// Returns:
//   - *RootMotionCurve: the curve
//   - error: ErrInvalidCurve wrapped with the violated invariant
func NewRootMotionCurve(timestamps []float32, positions []mgl32.Vec3, interpolation Interpolation) (*RootMotionCurve, error) {
	if len(timestamps) != len(positions) {
		return nil, fmt.Errorf("%w: %d timestamps but %d positions", ErrInvalidCurve, len(timestamps), len(positions))
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrInvalidCurve)
	}
	if timestamps[0] != 0 {
		return nil, fmt.Errorf("%w: first timestamp is %v, want 0", ErrInvalidCurve, timestamps[0])
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] < timestamps[i-1] {
			return nil, fmt.Errorf("%w: timestamp %d (%v) precedes timestamp %d (%v)", ErrInvalidCurve, i, timestamps[i], i-1, timestamps[i-1])
		}
	}
	for i, p := range positions {
		if !common.IsFiniteVec3(p) {
			return nil, fmt.Errorf("%w: position %d is not finite", ErrInvalidCurve, i)
		}
	}

	return &RootMotionCurve{
		timestamps:    append([]float32(nil), timestamps...),
		positions:     append([]mgl32.Vec3(nil), positions...),
		interpolation: interpolation,
	}, nil
}

// Len returns the number of keys.
func (c *RootMotionCurve) Len() int {
	return len(c.timestamps)
}

// Timestamps returns a copy of the key times.
func (c *RootMotionCurve) Timestamps() []float32 {
	return append([]float32(nil), c.timestamps...)
}

// Positions returns a copy of the key positions.
func (c *RootMotionCurve) Positions() []mgl32.Vec3 {
	return append([]mgl32.Vec3(nil), c.positions...)
}

// Interpolation returns the evaluation mode of the curve.
func (c *RootMotionCurve) Interpolation() Interpolation {
	return c.interpolation
}

// Key returns the i-th key.
//
// Parameters:
//   - i: key index in [0, Len())
//
// Returns:
//   - float32: the key time
//   - mgl32.Vec3: the key position
func (c *RootMotionCurve) Key(i int) (float32, mgl32.Vec3) {
	return c.timestamps[i], c.positions[i]
}

// Duration returns the timestamp of the last key.
func (c *RootMotionCurve) Duration() float32 {
	return c.timestamps[len(c.timestamps)-1]
}

// Sample evaluates the curve at time t, clamping outside the keyed range.
//
// Parameters:
//   - t: time in seconds
//
// Returns:
//   - mgl32.Vec3: the position at t
func (c *RootMotionCurve) Sample(t float32) mgl32.Vec3 {
	prev, next, frac := common.KeyframeSpan(c.timestamps, t)
	if c.interpolation == InterpolationStep || prev == next {
		return c.positions[prev]
	}
	return common.LerpVec3(c.positions[prev], c.positions[next], frac)
}

// Displacement returns the root translation accumulated between two curve times.
//
// Parameters:
//   - from: start time in seconds
//   - to: end time in seconds
//
// Returns:
//   - mgl32.Vec3: Sample(to) - Sample(from)
func (c *RootMotionCurve) Displacement(from, to float32) mgl32.Vec3 {
	return c.Sample(to).Sub(c.Sample(from))
}

// Equal reports whether two curves hold identical keys and interpolation.
func (c *RootMotionCurve) Equal(other *RootMotionCurve) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.interpolation != other.interpolation || len(c.timestamps) != len(other.timestamps) {
		return false
	}
	for i := range c.timestamps {
		if c.timestamps[i] != other.timestamps[i] || c.positions[i] != other.positions[i] {
			return false
		}
	}
	return true
}

// CurveRecord is the content form of a RootMotionCurve used by persistence backends.
type CurveRecord struct {
	Interpolation Interpolation `json:"interpolation" yaml:"interpolation"`
	Timestamps    []float32     `json:"timestamps" yaml:"timestamps,flow"`
	Positions     [][3]float32  `json:"positions" yaml:"positions"`
}

// Record converts the curve into its persistable content form.
func (c *RootMotionCurve) Record() CurveRecord {
	positions := make([][3]float32, len(c.positions))
	for i, p := range c.positions {
		positions[i] = p
	}
	return CurveRecord{
		Interpolation: c.interpolation,
		Timestamps:    c.Timestamps(),
		Positions:     positions,
	}
}

// CurveFromRecord rebuilds a curve from persisted content, re-validating every invariant.
//
// Parameters:
//   - r: the persisted record
//
// Returns:
//   - *RootMotionCurve: the rebuilt curve
//   - error: ErrInvalidCurve if the record is malformed
func CurveFromRecord(r CurveRecord) (*RootMotionCurve, error) {
	positions := make([]mgl32.Vec3, len(r.Positions))
	for i, p := range r.Positions {
		positions[i] = p
	}
	return NewRootMotionCurve(r.Timestamps, positions, r.Interpolation)
}

// RootMotionData marks an animation graph node for root motion extraction.
// It is authored with a nil Curve and receives its curve exactly once, when the node is baked.
type RootMotionData struct {
	// BakeType selects the extraction strategy.
	BakeType RootMotionBakeType

	// Curve references the baked curve, or nil while the node is unbaked.
	Curve *asset.Handle[*RootMotionCurve]
}

// Baked reports whether the node's curve has been populated.
func (d *RootMotionData) Baked() bool {
	return d != nil && d.Curve != nil
}
