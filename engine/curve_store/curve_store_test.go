package curve_store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-gl/mathgl/mgl32"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCurve(t *testing.T) *model.RootMotionCurve {
	t.Helper()
	c, err := model.NewRootMotionCurve(
		[]float32{0, 1.0 / 60, 2.0 / 60},
		[]mgl32.Vec3{{0, 0, 0}, {0.1, 0, 0.013}, {0.2, 0.001, 0.027}},
		model.InterpolationLinear,
	)
	require.NoError(t, err)
	return c
}

// runStoreContract exercises the behaviour every backend shares.
func runStoreContract(t *testing.T, store CurveStore) {
	t.Helper()
	ctx := context.Background()
	curve := sampleCurve(t)

	_, err := store.LoadCurve(ctx, "rootmotion/hero/1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveCurve(ctx, "rootmotion/hero/2", curve.Record()))
	require.NoError(t, store.SaveCurve(ctx, "rootmotion/hero/1", curve.Record()))
	require.NoError(t, store.SaveCurve(ctx, "rootmotion/hero/1", curve.Record()), "overwrite")

	rec, err := store.LoadCurve(ctx, "rootmotion/hero/1")
	require.NoError(t, err)
	back, err := model.CurveFromRecord(rec)
	require.NoError(t, err)
	assert.True(t, curve.Equal(back))

	paths, err := store.ListCurves(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rootmotion/hero/1", "rootmotion/hero/2"}, paths)

	require.NoError(t, store.DeleteCurve(ctx, "rootmotion/hero/2"))
	require.NoError(t, store.DeleteCurve(ctx, "rootmotion/hero/2"), "deleting twice is fine")
	paths, err = store.ListCurves(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rootmotion/hero/1"}, paths)

	for _, bad := range []string{"", "/abs", "a/../b", "a//b", "./a"} {
		assert.ErrorIs(t, store.SaveCurve(ctx, bad, curve.Record()), ErrInvalidKey, "key %q", bad)
	}

	id := asset.ID(4)
	manifest := rootmotion.GraphManifest{
		Graph: "hero",
		Nodes: []rootmotion.SerializedNode{
			{Index: 1, Name: "walk", RootMotion: rootmotion.SerializedRootMotionData{
				BakeType: model.BakeTypeCenterOfGravity,
				Curve:    &rootmotion.SerializedCurveRef{Path: "rootmotion/hero/1"},
			}},
			{Index: 2, Name: "run", RootMotion: rootmotion.SerializedRootMotionData{
				BakeType: model.BakeTypeCenterOfGravity,
				Curve:    &rootmotion.SerializedCurveRef{ID: &id},
			}},
			{Index: 3, Name: "turn", RootMotion: rootmotion.SerializedRootMotionData{BakeType: model.BakeTypeRootBone}},
		},
	}
	require.NoError(t, store.SaveManifest(ctx, manifest))

	loaded, err := store.LoadManifest(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, manifest, loaded)

	names, err := store.ListManifests(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, names)

	_, err = store.LoadManifest(ctx, "villain")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Contract(t *testing.T) {
	store, err := NewCurveStore()
	require.NoError(t, err)
	assert.Equal(t, BackendTypeMemory, store.Backend())
	runStoreContract(t, store)
}

func TestFileStore_Contract(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCurveStore(WithBackend(BackendTypeFile), WithDir(dir))
	require.NoError(t, err)
	defer store.Close()
	runStoreContract(t, store)

	_, err = os.Stat(filepath.Join(dir, "curves", "rootmotion", "hero", "1.yaml"))
	assert.NoError(t, err, "curve paths map onto nested directories")

	leftovers, err := filepath.Glob(filepath.Join(dir, "curves", "rootmotion", "hero", tmpPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRedisStore_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store, err := NewCurveStore(WithBackend(BackendTypeRedis), WithRedisClient(client), WithPrefix("test:"))
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
	assert.True(t, mr.Exists("test:curve:rootmotion/hero/1"))
}

func TestRedisStore_TTLPrunesIndex(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewCurveStore(WithBackend(BackendTypeRedis), WithRedisAddr(mr.Addr(), "", 0), WithTTL(time.Minute))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveCurve(ctx, "rootmotion/a/1", sampleCurve(t).Record()))
	mr.FastForward(2 * time.Minute)

	paths, err := store.ListCurves(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestParseBackendType(t *testing.T) {
	b, err := ParseBackendType("Redis")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeRedis, b)

	b, err = ParseBackendType("")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeMemory, b)

	_, err = ParseBackendType("s3")
	assert.Error(t, err)
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	store, err := NewCurveStore()
	require.NoError(t, err)

	curves := asset.NewAssets[*model.RootMotionCurve]()
	curve := sampleCurve(t)
	withPath, err := curves.AddWithPath("rootmotion/hero/1", curve)
	require.NoError(t, err)
	noPath := curves.Add(curve)

	p, err := Persist(ctx, store, curves, withPath)
	require.NoError(t, err)
	assert.Equal(t, "rootmotion/hero/1", p)

	_, err = Persist(ctx, store, curves, noPath)
	assert.ErrorIs(t, err, ErrNoPath)

	reloaded := asset.NewAssets(asset.WithFirstID[*model.RootMotionCurve](42))
	n, err := Restore(ctx, store, reloaded)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h, ok := reloaded.ByPath("rootmotion/hero/1")
	require.True(t, ok)
	assert.Equal(t, asset.ID(42), h.ID())
	got, _ := reloaded.Get(h)
	assert.True(t, curve.Equal(got))

	n, err = Restore(ctx, store, reloaded)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "existing paths are left untouched")
}

func TestRestore_ThenApplyManifest(t *testing.T) {
	ctx := context.Background()
	store, err := NewCurveStore(WithBackend(BackendTypeFile), WithDir(t.TempDir()))
	require.NoError(t, err)

	curves := asset.NewAssets[*model.RootMotionCurve]()
	h, err := curves.AddWithPath("rootmotion/hero/1", sampleCurve(t))
	require.NoError(t, err)

	graph := animation_graph.NewAnimationGraph(animation_graph.WithName("hero"))
	idx, err := graph.AddBlend(animation_graph.RootNode, "walk", 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)
	require.NoError(t, graph.SetRootMotionCurve(idx, h))

	_, err = Persist(ctx, store, curves, h)
	require.NoError(t, err)
	manifest, err := rootmotion.SerializeGraph(graph, curves)
	require.NoError(t, err)
	require.NoError(t, store.SaveManifest(ctx, manifest))

	reloaded := asset.NewAssets(asset.WithFirstID[*model.RootMotionCurve](9))
	_, err = Restore(ctx, store, reloaded)
	require.NoError(t, err)

	rebuilt := animation_graph.NewAnimationGraph(animation_graph.WithName("hero"))
	_, err = rebuilt.AddBlend(animation_graph.RootNode, "walk", 1, animation_graph.WithRootMotion(model.BakeTypeCenterOfGravity))
	require.NoError(t, err)

	loaded, err := store.LoadManifest(ctx, "hero")
	require.NoError(t, err)
	attached, err := rootmotion.ApplySerializedGraph(rebuilt, loaded, reloaded)
	require.NoError(t, err)
	assert.Equal(t, 1, attached)
	assert.False(t, rebuilt.Unbaked())
}
