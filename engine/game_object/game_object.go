package game_object

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animator"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
)

// ErrNoSkeleton is returned by FromSkeleton when the skeleton is nil or has no bones.
var ErrNoSkeleton = errors.New("skeleton has no bones")

type gameObject struct {
	id      uint64
	name    string
	enabled atomic.Bool

	h        hierarchy.Hierarchy
	root     hierarchy.NodeID
	rootSet  bool
	animator animator.Animator
	graph    asset.Handle[animation_graph.AnimationGraph]
}

// GameObject defines the interface for a scene entity that owns a skeleton, the animator
// posing it, and the animation graph whose root motion is baked against it.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Name returns the object's name, used in logs and bake reports.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Enabled returns whether this object takes part in baking and playback.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Hierarchy returns the transform hierarchy holding the object's skeleton.
	//
	// Returns:
	//   - hierarchy.Hierarchy: the hierarchy, or nil if unset
	Hierarchy() hierarchy.Hierarchy

	// Root returns the skeleton root node. Defaults to the hierarchy root.
	//
	// Returns:
	//   - hierarchy.NodeID: the skeleton root
	Root() hierarchy.NodeID

	// Animator returns the Animator associated with this object.
	//
	// Returns:
	//   - animator.Animator: the associated Animator, or nil
	Animator() animator.Animator

	// Graph returns the handle of the object's animation graph.
	//
	// Returns:
	//   - asset.Handle[animation_graph.AnimationGraph]: the graph handle, zero if unset
	Graph() asset.Handle[animation_graph.AnimationGraph]

	// Owner converts the object into a bake target.
	//
	// Returns:
	//   - rootmotion.Owner: the owner triple
	Owner() rootmotion.Owner

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object takes part in baking and playback.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetAnimator sets the Animator associated with this object.
	//
	// Parameters:
	//   - anim: the Animator to associate
	SetAnimator(anim animator.Animator)

	// SetGraph sets the object's animation graph.
	//
	// Parameters:
	//   - graph: the graph handle
	SetGraph(graph asset.Handle[animation_graph.AnimationGraph])
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects are enabled unless WithEnabled(false) is given.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

// FromSkeleton builds a GameObject around an imported skeleton: a fresh hierarchy mirroring
// the bones, and an animator targeting them with the rest pose as bind pose.
//
// Parameters:
//   - skel: the skeleton to instantiate
//   - graph: the animation graph baked against the skeleton
//   - options: functional options applied after the hierarchy and animator are set
//
// Returns:
//   - GameObject: the newly created object
//   - error: ErrNoSkeleton, or the hierarchy construction error
func FromSkeleton(skel *model.Skeleton, graph asset.Handle[animation_graph.AnimationGraph], options ...GameObjectBuilderOption) (GameObject, error) {
	if skel == nil || len(skel.Bones) == 0 {
		return nil, ErrNoSkeleton
	}

	h, targets, err := hierarchy.FromSkeleton(skel)
	if err != nil {
		return nil, fmt.Errorf("failed to build hierarchy: %w", err)
	}
	anim := animator.NewAnimator(
		animator.WithSkeleton(skel),
		animator.WithTargets(targets),
		animator.WithBindPoseFrom(h),
	)

	opts := append([]GameObjectBuilderOption{
		WithHierarchy(h),
		WithAnimator(anim),
		WithGraph(graph),
	}, options...)
	return NewGameObject(opts...), nil
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Hierarchy() hierarchy.Hierarchy {
	return g.h
}

func (g *gameObject) Root() hierarchy.NodeID {
	if !g.rootSet && g.h != nil {
		return g.h.Root()
	}
	return g.root
}

func (g *gameObject) Animator() animator.Animator {
	return g.animator
}

func (g *gameObject) Graph() asset.Handle[animation_graph.AnimationGraph] {
	return g.graph
}

func (g *gameObject) Owner() rootmotion.Owner {
	owner := rootmotion.Owner{
		Name:      g.name,
		Root:      g.Root(),
		Hierarchy: g.h,
		Graph:     g.graph,
	}
	// a nil Animator must stay a nil interface so the driver rejects the owner
	if g.animator != nil {
		owner.Player = g.animator
	}
	if owner.Name == "" {
		owner.Name = fmt.Sprintf("object-%d", g.id)
	}
	return owner
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetAnimator(anim animator.Animator) {
	g.animator = anim
}

func (g *gameObject) SetGraph(graph asset.Handle[animation_graph.AnimationGraph]) {
	g.graph = graph
}
