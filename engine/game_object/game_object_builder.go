package game_object

import (
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animator"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithName sets the name of the GameObject.
//
// Parameters:
//   - name: the name reported in logs and bake reports
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the name
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithEnabled sets whether the GameObject takes part in baking and playback.
//
// Parameters:
//   - enabled: false to skip the object
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithHierarchy sets the transform hierarchy holding the skeleton.
//
// Parameters:
//   - h: the hierarchy
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the hierarchy
func WithHierarchy(h hierarchy.Hierarchy) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.h = h
	}
}

// WithRoot sets the skeleton root node when the skeleton is a subtree of a larger hierarchy.
//
// Parameters:
//   - root: the skeleton root
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the root
func WithRoot(root hierarchy.NodeID) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.root = root
		obj.rootSet = true
	}
}

// WithAnimator sets the Animator for this GameObject.
//
// Parameters:
//   - anim: the Animator to associate
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Animator
func WithAnimator(anim animator.Animator) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.animator = anim
	}
}

// WithGraph sets the animation graph of this GameObject.
//
// Parameters:
//   - graph: the graph handle
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the graph
func WithGraph(graph asset.Handle[animation_graph.AnimationGraph]) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.graph = graph
	}
}
