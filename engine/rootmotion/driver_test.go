package rootmotion

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animator"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	clips  asset.Assets[*model.AnimationClip]
	graphs asset.Assets[animation_graph.AnimationGraph]
	curves asset.Assets[*model.RootMotionCurve]
	flag   *NeedsBaking

	graph  animation_graph.AnimationGraph
	owner  Owner
	nodeA  hierarchy.NodeID
	clipID asset.Handle[*model.AnimationClip]
}

// newFixture builds a root with A at (1,0,0) and B at (-1,0,0), both unnamed, and a graph
// named graphName with no nodes besides the root.
func newFixture(t *testing.T, graphName string) *fixture {
	t.Helper()
	f := &fixture{
		clips:  asset.NewAssets[*model.AnimationClip](),
		graphs: asset.NewAssets[animation_graph.AnimationGraph](),
		curves: asset.NewAssets[*model.RootMotionCurve](),
		flag:   NewNeedsBaking(false),
	}

	h := hierarchy.NewHierarchy()
	a, err := h.AddNode(h.Root(), model.FromTranslation(1, 0, 0))
	require.NoError(t, err)
	b, err := h.AddNode(h.Root(), model.FromTranslation(-1, 0, 0))
	require.NoError(t, err)
	f.nodeA = a

	player := animator.NewAnimator(
		animator.WithTargets(map[int32]hierarchy.NodeID{0: a, 1: b}),
		animator.WithBindPoseFrom(h),
	)

	f.clipID = f.clips.Add(&model.AnimationClip{Name: "idle", Duration: 1})
	f.graph = animation_graph.NewAnimationGraph(
		animation_graph.WithName(graphName),
		animation_graph.WithRootMotionHook(f.flag.GraphHook()),
	)
	f.owner = Owner{
		Name:      "hero",
		Root:      h.Root(),
		Hierarchy: h,
		Player:    player,
		Graph:     f.graphs.Add(f.graph),
	}
	return f
}

func (f *fixture) driver(options ...DriverBuilderOption) Driver {
	return NewDriver(f.clips, f.graphs, f.curves, f.flag, options...)
}

func TestSampleTimes(t *testing.T) {
	times := SampleTimes(1, 60)
	require.Len(t, times, 61)
	assert.Equal(t, float32(0), times[0])
	assert.InDelta(t, 1.0, times[60], 1e-6)
	for i := 1; i < len(times); i++ {
		assert.InDelta(t, 1.0/60, times[i]-times[i-1], 1e-5)
		assert.Greater(t, times[i], times[i-1])
	}

	assert.Equal(t, []float32{0}, SampleTimes(0, 60))

	const duration float32 = 0.999999
	short := SampleTimes(duration, 60)
	require.Len(t, short, 61)
	assert.LessOrEqual(t, short[60], duration, "the last time never passes the clip end")
	assert.GreaterOrEqual(t, short[60], duration-float32(1.0/60))
	assert.Greater(t, short[60], short[59])

	odd := SampleTimes(0.51, 60)
	require.Len(t, odd, 31)
	assert.InDelta(t, 0.5, odd[30], 1e-6)
	assert.Len(t, SampleTimes(0.5, 0), 31, "non-positive rate falls back to the default")
}

func TestBuildCurve_LengthMismatch(t *testing.T) {
	_, err := BuildCurve([]float32{0, 0.5}, []mgl32.Vec3{{}})
	assert.ErrorIs(t, err, ErrCurveLengthMismatch)

	c, err := BuildCurve([]float32{0, 0.5}, []mgl32.Vec3{{}, {1, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, model.InterpolationLinear, c.Interpolation())
}

func TestDriver_StaticPoseScenario(t *testing.T) {
	f := newFixture(t, "hero")
	idx, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	require.True(t, f.flag.Pending(), "authoring unbaked root motion sets the flag")

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Baked, 1)
	assert.Empty(t, report.Skipped)
	assert.False(t, report.Pending)
	assert.False(t, f.flag.Pending())
	assert.Equal(t, 61, report.Samples)

	node, _ := f.graph.Node(idx)
	require.True(t, node.RootMotion.Baked())
	curve, ok := f.curves.Get(*node.RootMotion.Curve)
	require.True(t, ok)

	ts := curve.Timestamps()
	ps := curve.Positions()
	require.Len(t, ts, 61)
	require.Len(t, ps, 61)
	assert.Equal(t, float32(0), ts[0])
	assert.InDelta(t, 1.0, ts[60], 1e-6)
	for _, p := range ps {
		assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{}, p, 1e-6), "got %v", p)
	}

	path, ok := f.curves.Path(*node.RootMotion.Curve)
	require.True(t, ok)
	assert.Equal(t, "rootmotion/hero/1", path)
	assert.Equal(t, path, report.Baked[0].Path)
}

func TestDriver_AnimatedClip(t *testing.T) {
	f := newFixture(t, "hero")
	walk := f.clips.Add(&model.AnimationClip{
		Name:     "walk",
		Duration: 0.5,
		Channels: []model.AnimationChannel{{
			BoneIndex: 0,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
				{Time: 0.5, Value: mgl32.Vec3{3, 0, 0}},
			},
		}},
	})
	idx, err := f.graph.AddClip(animation_graph.RootNode, "walk", walk, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	_, err = f.driver(WithSampleRate(4)).Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)

	node, _ := f.graph.Node(idx)
	curve, ok := f.curves.Get(*node.RootMotion.Curve)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0.25, 0.5}, curve.Timestamps())
	assert.True(t, common.ApproxEqualVec3(mgl32.Vec3{1, 0, 0}, curve.Displacement(0, 0.5), 1e-5), "average of A and B moves half as far as A")
}

func TestDriver_Idempotent(t *testing.T) {
	f := newFixture(t, "hero")
	idx, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	d := f.driver()
	_, err = d.Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	first, _ := f.graph.Node(idx)

	report, err := d.Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	assert.Empty(t, report.Baked)
	assert.Equal(t, 0, report.Samples)

	second, _ := f.graph.Node(idx)
	assert.Equal(t, *first.RootMotion.Curve, *second.RootMotion.Curve)
	assert.Equal(t, 1, f.curves.Len())
}

func TestDriver_MissingClipKeepsFlagSet(t *testing.T) {
	f := newFixture(t, "hero")
	_, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	orphan, err := f.graph.AddBlend(animation_graph.RootNode, "locomotion", 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	gone, err := f.graph.AddClip(animation_graph.RootNode, "deleted", asset.HandleFromID[*model.AnimationClip](404), 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	assert.Len(t, report.Baked, 1)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, orphan, report.Skipped[0].Node)
	assert.Equal(t, gone, report.Skipped[1].Node)
	for _, s := range report.Skipped {
		assert.ErrorIs(t, s.Err, ErrMissingClip)
		assert.Equal(t, ReasonMissingClip, s.Reason)
	}
	assert.True(t, report.Pending)
	assert.True(t, f.flag.Pending())
}

func TestDriver_MissingGraph(t *testing.T) {
	f := newFixture(t, "hero")
	f.owner.Graph = asset.HandleFromID[animation_graph.AnimationGraph](77)
	f.flag.Set()

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0].Err, ErrMissingGraph)
	assert.Equal(t, animation_graph.NodeIndex(-1), report.Skipped[0].Node)
	assert.True(t, f.flag.Pending())
}

func TestDriver_ClearsFlagWhenNothingPending(t *testing.T) {
	f := newFixture(t, "hero")
	f.flag.Set()

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	assert.False(t, report.Pending)
	assert.False(t, f.flag.Pending())
}

func TestDriver_ZeroMassSkipsNode(t *testing.T) {
	f := newFixture(t, "hero")
	_, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	d := f.driver(WithMassPolicy(MassPolicy{MarkerPrefix: "DEF", UnnamedMassBearing: false}))
	report, err := d.Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0].Err, ErrZeroMassNodes)
	assert.Equal(t, 0, f.curves.Len())
	assert.True(t, f.flag.Pending())
}

func TestDriver_RootBone(t *testing.T) {
	f := newFixture(t, "hero")
	idx, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeRootBone))
	require.NoError(t, err)

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0].Err, ErrUnimplementedBakeType)

	h := hierarchy.NewHierarchy()
	hips, err := h.AddNode(h.Root(), model.FromTranslation(0, 1, 0), hierarchy.WithName("hips"))
	require.NoError(t, err)
	f.owner.Hierarchy = h
	f.owner.Root = h.Root()
	f.owner.Player = animator.NewAnimator(animator.WithTargets(map[int32]hierarchy.NodeID{0: hips}), animator.WithBindPoseFrom(h))

	report, err = f.driver(WithRootBoneName("hips")).Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Baked, 1)

	node, _ := f.graph.Node(idx)
	curve, _ := f.curves.Get(*node.RootMotion.Curve)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, curve.Sample(0.5))
}

func TestDriver_MarksBakedGraphsModified(t *testing.T) {
	f := newFixture(t, "hero")
	_, err := f.graph.AddClip(animation_graph.RootNode, "turn", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeRootBone))
	require.NoError(t, err)

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.Empty(t, f.graphs.DrainModified(), "skipped nodes leave the graph untouched")

	_, err = f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	report, err = f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Baked, 1)
	assert.Equal(t, []asset.Handle[animation_graph.AnimationGraph]{f.owner.Graph}, f.graphs.DrainModified())
}

func TestDriver_ContextCheckedBetweenNodes(t *testing.T) {
	f := newFixture(t, "hero")
	_, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.driver().Bake(ctx, []Owner{f.owner})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Baked)
	assert.True(t, f.flag.Pending())
}

func TestDriver_InvalidOwner(t *testing.T) {
	f := newFixture(t, "hero")
	_, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	f.owner.Player = nil

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, ReasonInvalidOwner, report.Skipped[0].Reason)
}

func TestDriver_CurvePathTakenFallsBackToID(t *testing.T) {
	f := newFixture(t, "hero")
	idx, err := f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	stale, err := model.NewRootMotionCurve([]float32{0}, []mgl32.Vec3{{}}, model.InterpolationLinear)
	require.NoError(t, err)
	_, err = f.curves.AddWithPath("rootmotion/hero/1", stale)
	require.NoError(t, err)

	report, err := f.driver().Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)
	require.Len(t, report.Baked, 1)
	assert.Empty(t, report.Baked[0].Path)

	node, _ := f.graph.Node(idx)
	_, ok := f.curves.Path(*node.RootMotion.Curve)
	assert.False(t, ok)
}

func TestDriver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	f := newFixture(t, "hero")
	_, err = f.graph.AddClip(animation_graph.RootNode, "idle", f.clipID, 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	_, err = f.graph.AddBlend(animation_graph.RootNode, "blend", 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	_, err = f.driver(WithMetrics(m)).Bake(context.Background(), []Owner{f.owner})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[mf.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, 1.0, values["rootmotion_nodes_baked_total"])
	assert.Equal(t, 1.0, values["rootmotion_nodes_skipped_total"])
	assert.Equal(t, 61.0, values["rootmotion_samples_total"])
	assert.Equal(t, 1.0, values["rootmotion_bake_duration_seconds"])

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors cannot be registered twice")
}

func TestNeedsBaking_GraphHook(t *testing.T) {
	flag := NewNeedsBaking(false)
	g := animation_graph.NewAnimationGraph(animation_graph.WithRootMotionHook(flag.GraphHook()))
	_, err := g.AddBlend(animation_graph.RootNode, "plain", 1)
	require.NoError(t, err)
	assert.False(t, flag.Pending())

	require.NoError(t, g.SetRootMotion(animation_graph.RootNode, model.BakeTypeCenterOfGravity))
	assert.True(t, flag.Pending())

	flag.Clear()
	assert.False(t, flag.Pending())
}
