package hierarchy

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) (Hierarchy, NodeID, NodeID, NodeID) {
	t.Helper()
	h := NewHierarchy(WithRootName("root"))
	a, err := h.AddNode(h.Root(), model.FromTranslation(1, 0, 0), WithName("A"))
	require.NoError(t, err)
	b, err := h.AddNode(h.Root(), model.FromTranslation(-1, 0, 0))
	require.NoError(t, err)
	c, err := h.AddNode(a, model.FromTranslation(0, 1, 0), WithName("C"))
	require.NoError(t, err)
	return h, a, b, c
}

func TestHierarchy_Structure(t *testing.T) {
	h, a, b, c := buildTree(t)

	assert.Equal(t, []NodeID{a, b}, h.ChildrenOf(h.Root()))
	assert.Equal(t, []NodeID{a, c, b}, h.Descendants(h.Root()), "depth-first pre-order")

	p, ok := h.ParentOf(c)
	require.True(t, ok)
	assert.Equal(t, a, p)

	_, ok = h.ParentOf(h.Root())
	assert.False(t, ok)

	name, ok := h.NameOf(a)
	require.True(t, ok)
	assert.Equal(t, "A", name)
	_, ok = h.NameOf(b)
	assert.False(t, ok, "b is unnamed")

	found, ok := h.NodeByName("C")
	require.True(t, ok)
	assert.Equal(t, c, found)
	assert.Equal(t, 4, h.Len())
}

func TestHierarchy_UnknownNodes(t *testing.T) {
	h := NewHierarchy()

	_, err := h.AddNode(42, model.IdentityTransform())
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.ErrorIs(t, h.SetTransform(42, model.IdentityTransform()), ErrUnknownNode)

	_, ok := h.Transform(42)
	assert.False(t, ok)
	assert.Nil(t, h.ChildrenOf(42))
	assert.Nil(t, h.Descendants(42))
}

func TestHierarchy_SetTransform(t *testing.T) {
	h, a, _, _ := buildTree(t)

	require.NoError(t, h.SetTransform(a, model.FromTranslation(5, 0, 0)))
	tr, ok := h.Transform(a)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, tr.Translation)
}

func TestHierarchy_Reparent(t *testing.T) {
	h, a, b, c := buildTree(t)

	assert.ErrorIs(t, h.Reparent(a, c), ErrCycle)
	assert.ErrorIs(t, h.Reparent(a, a), ErrCycle)

	require.NoError(t, h.Reparent(c, b))
	assert.Empty(t, h.ChildrenOf(a))
	assert.Equal(t, []NodeID{c}, h.ChildrenOf(b))
	p, _ := h.ParentOf(c)
	assert.Equal(t, b, p)
}

func TestHierarchy_AcquireIsExclusive(t *testing.T) {
	h := NewHierarchy()
	release := h.Acquire()

	viewed := make(chan struct{})
	go h.View(func() { close(viewed) })

	select {
	case <-viewed:
		t.Fatal("View ran while exclusive access was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()

	select {
	case <-viewed:
	case <-time.After(time.Second):
		t.Fatal("View did not run after release")
	}
}

func TestFromSkeleton(t *testing.T) {
	skel := &model.Skeleton{
		Bones: []model.Bone{
			{Name: "spine", ParentIndex: 2, LocalTransform: model.FromTranslation(0, 1, 0)},
			{Name: "", ParentIndex: 0, LocalTransform: model.FromTranslation(0, 0.5, 0)},
			{Name: "hips", ParentIndex: -1, LocalTransform: model.FromTranslation(0, 1, 0)},
		},
	}

	h, ids, err := FromSkeleton(skel)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	assert.Equal(t, []NodeID{ids[2]}, h.ChildrenOf(h.Root()))
	p, _ := h.ParentOf(ids[0])
	assert.Equal(t, ids[2], p)

	_, named := h.NameOf(ids[1])
	assert.False(t, named, "empty bone names stay unnamed")
}

func TestFromSkeleton_Cycle(t *testing.T) {
	skel := &model.Skeleton{
		Bones: []model.Bone{
			{Name: "a", ParentIndex: 1},
			{Name: "b", ParentIndex: 0},
		},
	}
	_, _, err := FromSkeleton(skel)
	assert.Error(t, err)
}
