package model

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTransform_MulComposesParentFirst(t *testing.T) {
	parent := IdentityTransform()
	parent.Translation = mgl32.Vec3{0, 1, 0}
	parent.Rotation = mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	parent.Scale = mgl32.Vec3{2, 2, 2}

	child := FromTranslation(1, 0, 0)

	got := parent.Mul(child)
	// scale (2,0,0) -> rotate 90deg about Z (0,2,0) -> translate (0,3,0)
	assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{0, 3, 0}, got.Translation, 1e-5), "got %v", got.Translation)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, got.Scale)
}

func TestTransform_IdentityIsNeutral(t *testing.T) {
	tr := FromTranslation(3, -2, 1)
	assert.True(t, common.ApproxEqualVec3(tr.Translation, IdentityTransform().Mul(tr).Translation, 1e-6))
	assert.True(t, common.ApproxEqualVec3(tr.Translation, tr.Mul(IdentityTransform()).Translation, 1e-6))
}

func TestTransform_MatrixRoundTrip(t *testing.T) {
	tr := Transform{
		Translation: mgl32.Vec3{1, 2, 3},
		Rotation:    mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0}),
		Scale:       mgl32.Vec3{1, 2, 0.5},
	}

	back := TransformFromMatrix(tr.Matrix())
	assert.True(t, common.ApproxEqualVec3(tr.Translation, back.Translation, 1e-5))
	assert.True(t, common.ApproxEqualVec3(tr.Scale, back.Scale, 1e-5))
	assert.True(t, tr.Rotation.ApproxEqualThreshold(back.Rotation, 1e-4), "rotation %v vs %v", tr.Rotation, back.Rotation)
}

func TestAnimationChannel_Sample(t *testing.T) {
	ch := AnimationChannel{
		BoneIndex: 0,
		PositionKeys: []VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{2, 0, 0}},
		},
	}
	rest := FromTranslation(9, 9, 9)
	rest.Scale = mgl32.Vec3{3, 3, 3}

	got := ch.Sample(0.5, rest)
	assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{1, 0, 0}, got.Translation, 1e-6))
	assert.Equal(t, rest.Scale, got.Scale, "unanimated components keep the rest value")

	assert.Equal(t, mgl32.Vec3{2, 0, 0}, ch.Sample(5, rest).Translation)
}

func TestAnimationClip_Channel(t *testing.T) {
	clip := &AnimationClip{Channels: []AnimationChannel{{BoneIndex: 2}, {BoneIndex: 4}}}
	require.NotNil(t, clip.Channel(4))
	assert.Nil(t, clip.Channel(3))
}

func TestNewRootMotionCurve_Invariants(t *testing.T) {
	_, err := NewRootMotionCurve([]float32{0, 1}, []mgl32.Vec3{{}}, InterpolationLinear)
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewRootMotionCurve(nil, nil, InterpolationLinear)
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewRootMotionCurve([]float32{0.1}, []mgl32.Vec3{{}}, InterpolationLinear)
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewRootMotionCurve([]float32{0, 0.5, 0.4}, make([]mgl32.Vec3, 3), InterpolationLinear)
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewRootMotionCurve([]float32{0}, []mgl32.Vec3{{float32(math.NaN()), 0, 0}}, InterpolationLinear)
	assert.ErrorIs(t, err, ErrInvalidCurve)
}

func TestRootMotionCurve_IsImmutable(t *testing.T) {
	ts := []float32{0, 1}
	ps := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	c, err := NewRootMotionCurve(ts, ps, InterpolationLinear)
	require.NoError(t, err)

	ts[1] = 99
	ps[1] = mgl32.Vec3{99, 0, 0}
	c.Timestamps()[0] = 42

	assert.Equal(t, []float32{0, 1}, c.Timestamps())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, c.Positions()[1])
}

func TestRootMotionCurve_SampleAndDisplacement(t *testing.T) {
	c, err := NewRootMotionCurve(
		[]float32{0, 1, 2},
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 0, 2}},
		InterpolationLinear,
	)
	require.NoError(t, err)

	assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{0.5, 0, 0}, c.Sample(0.5), 1e-6))
	assert.Equal(t, mgl32.Vec3{1, 0, 2}, c.Sample(10))
	assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{1, 0, 2}, c.Displacement(0, 2), 1e-6))
	assert.Equal(t, float32(2), c.Duration())

	step, err := NewRootMotionCurve(c.Timestamps(), c.Positions(), InterpolationStep)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, step.Sample(0.9))
	assert.False(t, c.Equal(step))
}

func TestCurveRecord_YAML(t *testing.T) {
	c, err := NewRootMotionCurve([]float32{0, 0.5}, []mgl32.Vec3{{0, 0, 0}, {0.25, 0, 1}}, InterpolationLinear)
	require.NoError(t, err)

	data, err := yaml.Marshal(c.Record())
	require.NoError(t, err)
	assert.Contains(t, string(data), "interpolation: linear")

	var rec CurveRecord
	require.NoError(t, yaml.Unmarshal(data, &rec))
	back, err := CurveFromRecord(rec)
	require.NoError(t, err)
	assert.True(t, c.Equal(back))
}

func TestBakeType_Text(t *testing.T) {
	var b RootMotionBakeType
	require.NoError(t, b.UnmarshalText([]byte("root_bone")))
	assert.Equal(t, BakeTypeRootBone, b)
	assert.Error(t, b.UnmarshalText([]byte("hips")))

	text, err := BakeTypeCenterOfGravity.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "cog", string(text))
}

func TestRootMotionData_Baked(t *testing.T) {
	var nilData *RootMotionData
	assert.False(t, nilData.Baked())
	assert.False(t, (&RootMotionData{}).Baked())
}
