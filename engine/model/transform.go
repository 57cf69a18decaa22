package model

import (
	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/go-gl/mathgl/mgl32"
)

// IdentityTransform returns a transform with zero translation, identity rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Translation: mgl32.Vec3{0, 0, 0},
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// FromTranslation returns an identity transform offset by the given translation.
//
// Parameters:
//   - x, y, z: translation components
//
// Returns:
//   - Transform: the translated transform
func FromTranslation(x, y, z float32) Transform {
	t := IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

// Mul composes t (the parent) with child, producing the child's transform expressed in
// the parent's parent space. Scale is applied before rotation, rotation before translation.
//
// Parameters:
//   - child: a transform relative to t
//
// Returns:
//   - Transform: the composed transform
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.TransformPoint(child.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation).Normalize(),
		Scale:       common.MulElem(t.Scale, child.Scale),
	}
}

// TransformPoint maps a point from t's local space into its parent space.
//
// Parameters:
//   - p: the point in local space
//
// Returns:
//   - mgl32.Vec3: the point in parent space
func (t Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return t.Rotation.Rotate(common.MulElem(t.Scale, p)).Add(t.Translation)
}

// Matrix returns the column-major 4x4 matrix T * R * S for this transform.
func (t Transform) Matrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	scale := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return translate.Mul4(t.Rotation.Mat4()).Mul4(scale)
}

// TransformFromMatrix decomposes a column-major 4x4 matrix into translation, rotation and scale.
// Shear is not representable and is discarded.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - Transform: the decomposed transform
func TransformFromMatrix(m mgl32.Mat4) Transform {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()

	rot := m
	for i, s := range [3]float32{sx, sy, sz} {
		if s < 1e-4 {
			s = 1
		}
		for j := range 3 {
			rot[i*4+j] /= s
		}
	}
	rot[12], rot[13], rot[14] = 0, 0, 0

	return Transform{
		Translation: mgl32.Vec3{m[12], m[13], m[14]},
		Rotation:    mgl32.Mat4ToQuat(rot).Normalize(),
		Scale:       mgl32.Vec3{sx, sy, sz},
	}
}
