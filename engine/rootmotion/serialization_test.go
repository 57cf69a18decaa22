package rootmotion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func bakedFixture(t *testing.T, graphName string) (*fixture, animation_graph.NodeIndex) {
	t.Helper()
	f := newFixture(t, graphName)
	idx, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	_, err = f.driver(WithSampleRate(10)).Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	return f, idx
}

func TestSerialize_Unbaked(t *testing.T) {
	curves := asset.NewAssets[*model.RootMotionCurve]()
	s, err := Serialize(model.RootMotionData{BakeType: model.BakeTypeRootBone}, curves)
	require.NoError(t, err)
	assert.Nil(t, s.Curve)

	data, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, "bake_type: root_bone\n", string(data))

	back, err := Deserialize(s, curves)
	require.NoError(t, err)
	assert.Equal(t, model.BakeTypeRootBone, back.BakeType)
	assert.False(t, back.Baked())
}

func TestSerialize_PathRoundTripAcrossStoreReload(t *testing.T) {
	f, idx := bakedFixture(t, "hero")
	original, _ := f.graph.Node(idx)
	originalCurve, _ := f.curves.Get(*original.RootMotion.Curve)

	manifest, err := SerializeGraph(f.graph, f.curves)
	require.NoError(t, err)
	require.Len(t, manifest.Nodes, 1)
	ref := manifest.Nodes[0].RootMotion.Curve
	require.NotNil(t, ref)
	assert.Equal(t, "rootmotion/hero/1", ref.Path)
	assert.False(t, ref.Unstable())

	data, err := yaml.Marshal(manifest)
	require.NoError(t, err)
	var decoded GraphManifest
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	// rebuilt store hands out different ids
	reloaded := asset.NewAssets(asset.WithFirstID[*model.RootMotionCurve](500))
	for _, h := range f.curves.Handles() {
		c, _ := f.curves.Get(h)
		path, ok := f.curves.Path(h)
		require.True(t, ok)
		_, err := reloaded.AddWithPath(path, c)
		require.NoError(t, err)
	}

	graph := animation_graph.NewAnimationGraph(animation_graph.WithName("hero"))
	_, err = graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	attached, err := ApplySerializedGraph(graph, decoded, reloaded)
	require.NoError(t, err)
	assert.Equal(t, 1, attached)

	restored, _ := graph.Node(idx)
	require.True(t, restored.RootMotion.Baked())
	assert.NotEqual(t, original.RootMotion.Curve.ID(), restored.RootMotion.Curve.ID())
	restoredCurve, ok := reloaded.Get(*restored.RootMotion.Curve)
	require.True(t, ok)
	assert.True(t, originalCurve.Equal(restoredCurve))

	attached, err = ApplySerializedGraph(graph, decoded, reloaded)
	require.NoError(t, err, "re-applying the same manifest is a no-op")
	assert.Equal(t, 0, attached)
}

func TestSerialize_IDFallback(t *testing.T) {
	f, idx := bakedFixture(t, "")
	node, _ := f.graph.Node(idx)

	s, err := Serialize(*node.RootMotion, f.curves)
	require.NoError(t, err)
	require.NotNil(t, s.Curve)
	assert.True(t, s.Curve.Unstable())
	assert.Equal(t, node.RootMotion.Curve.ID(), *s.Curve.ID)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bake_type":"cog","curve":{"id":1}}`, string(data))

	back, err := Deserialize(s, f.curves)
	require.NoError(t, err)
	assert.Equal(t, *node.RootMotion.Curve, *back.Curve)
}

func TestDeserialize_PathPreferredOverID(t *testing.T) {
	curves := asset.NewAssets[*model.RootMotionCurve]()
	c, err := model.NewRootMotionCurve([]float32{0}, []mgl32.Vec3{{}}, model.InterpolationLinear)
	require.NoError(t, err)
	byID := curves.Add(c)
	byPath, err := curves.AddWithPath("rootmotion/x/1", c)
	require.NoError(t, err)

	id := byID.ID()
	got, err := Deserialize(SerializedRootMotionData{Curve: &SerializedCurveRef{Path: "rootmotion/x/1", ID: &id}}, curves)
	require.NoError(t, err)
	assert.Equal(t, byPath, *got.Curve)

	got, err = Deserialize(SerializedRootMotionData{Curve: &SerializedCurveRef{Path: "rootmotion/missing", ID: &id}}, curves)
	require.NoError(t, err)
	assert.Equal(t, byID, *got.Curve, "unknown path falls back to id")
}

func TestDeserialize_ResolutionFailure(t *testing.T) {
	f, idx := bakedFixture(t, "")
	node, _ := f.graph.Node(idx)
	s, err := Serialize(*node.RootMotion, f.curves)
	require.NoError(t, err)

	rebuilt := asset.NewAssets(asset.WithFirstID[*model.RootMotionCurve](100))
	_, err = Deserialize(s, rebuilt)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssetResolution)

	var resErr *AssetResolutionError
	require.True(t, errors.As(err, &resErr))
	require.NotNil(t, resErr.ID)
	assert.Equal(t, *s.Curve.ID, *resErr.ID)
	assert.Contains(t, resErr.Error(), "id 1")

	_, err = Deserialize(SerializedRootMotionData{Curve: &SerializedCurveRef{Path: "nope"}}, rebuilt)
	assert.ErrorIs(t, err, ErrAssetResolution)
}

func TestSerialize_DanglingHandle(t *testing.T) {
	curves := asset.NewAssets[*model.RootMotionCurve]()
	h := asset.HandleFromID[*model.RootMotionCurve](9)
	_, err := Serialize(model.RootMotionData{Curve: &h}, curves)
	assert.ErrorIs(t, err, ErrAssetResolution)
}

func TestApplySerializedGraph_Errors(t *testing.T) {
	curves := asset.NewAssets[*model.RootMotionCurve]()
	graph := animation_graph.NewAnimationGraph()
	missing := asset.ID(3)

	m := GraphManifest{Nodes: []SerializedNode{
		{Index: 9, Name: "ghost", RootMotion: SerializedRootMotionData{}},
		{Index: animation_graph.RootNode, Name: "root", RootMotion: SerializedRootMotionData{Curve: &SerializedCurveRef{ID: &missing}}},
	}}

	attached, err := ApplySerializedGraph(graph, m, curves)
	assert.Equal(t, 0, attached)
	assert.ErrorIs(t, err, animation_graph.ErrUnknownNode)
	assert.ErrorIs(t, err, ErrAssetResolution)
}

func TestApplySerializedGraph_AuthorsMissingRootMotion(t *testing.T) {
	curves := asset.NewAssets[*model.RootMotionCurve]()
	graph := animation_graph.NewAnimationGraph()

	m := GraphManifest{Nodes: []SerializedNode{
		{Index: animation_graph.RootNode, RootMotion: SerializedRootMotionData{BakeType: model.BakeTypeRootBone}},
	}}
	attached, err := ApplySerializedGraph(graph, m, curves)
	require.NoError(t, err)
	assert.Equal(t, 0, attached)

	root, _ := graph.Node(animation_graph.RootNode)
	require.NotNil(t, root.RootMotion)
	assert.Equal(t, model.BakeTypeRootBone, root.RootMotion.BakeType)
	assert.True(t, graph.Unbaked())
}
