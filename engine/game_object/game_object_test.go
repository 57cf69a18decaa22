package game_object

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBoneSkeleton() *model.Skeleton {
	return &model.Skeleton{
		Bones: []model.Bone{
			{ParentIndex: -1, LocalTransform: model.FromTranslation(1, 0, 0)},
			{ParentIndex: -1, LocalTransform: model.FromTranslation(-1, 0, 0)},
		},
	}
}

func TestGameObject_Defaults(t *testing.T) {
	obj := NewGameObject(WithID(7))
	assert.True(t, obj.Enabled())
	assert.Nil(t, obj.Hierarchy())
	assert.Nil(t, obj.Animator())

	owner := obj.Owner()
	assert.Equal(t, "object-7", owner.Name)
	assert.Nil(t, owner.Player, "unset animator stays a nil interface")

	obj.SetEnabled(false)
	assert.False(t, obj.Enabled())
}

func TestGameObject_RootDefaultsToHierarchyRoot(t *testing.T) {
	h := hierarchy.NewHierarchy()
	child, err := h.AddNode(h.Root(), model.IdentityTransform())
	require.NoError(t, err)

	obj := NewGameObject(WithHierarchy(h))
	assert.Equal(t, h.Root(), obj.Root())

	obj = NewGameObject(WithHierarchy(h), WithRoot(child))
	assert.Equal(t, child, obj.Root())
}

func TestFromSkeleton_NoBones(t *testing.T) {
	_, err := FromSkeleton(nil, asset.Handle[animation_graph.AnimationGraph]{})
	assert.ErrorIs(t, err, ErrNoSkeleton)
	_, err = FromSkeleton(&model.Skeleton{}, asset.Handle[animation_graph.AnimationGraph]{})
	assert.ErrorIs(t, err, ErrNoSkeleton)
}

func TestFromSkeleton_OwnerBakes(t *testing.T) {
	clips := asset.NewAssets[*model.AnimationClip]()
	graphs := asset.NewAssets[animation_graph.AnimationGraph]()
	curves := asset.NewAssets[*model.RootMotionCurve]()

	slide := clips.Add(&model.AnimationClip{
		Name:     "slide",
		Duration: 1,
		Channels: []model.AnimationChannel{{
			BoneIndex: 0,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
				{Time: 1, Value: mgl32.Vec3{3, 0, 0}},
			},
		}},
	})

	graph := animation_graph.NewAnimationGraph(animation_graph.WithName("hero"))
	idx, err := graph.AddClip(animation_graph.RootNode, "slide", slide, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	gh := graphs.Add(graph)

	obj, err := FromSkeleton(twoBoneSkeleton(), gh, WithName("hero"), WithID(1))
	require.NoError(t, err)
	assert.Equal(t, 3, obj.Hierarchy().Len(), "synthetic root plus two bones")

	driver := rootmotion.NewDriver(clips, graphs, curves, nil, rootmotion.WithSampleRate(4))
	report, err := driver.Bake(context.Background(), []rootmotion.Owner{obj.Owner()})
	require.NoError(t, err)
	require.Len(t, report.Baked, 1)
	assert.Equal(t, "hero", report.Baked[0].Owner)
	assert.Equal(t, idx, report.Baked[0].Node)

	curve, ok := curves.Get(report.Baked[0].Curve)
	require.True(t, ok)
	assert.Equal(t, 5, curve.Len())
	assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{1, 0, 0}, curve.Displacement(0, 1), 1e-5))
	assert.False(t, driver.NeedsBaking().Pending())
}
