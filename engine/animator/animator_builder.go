package animator

import (
	"maps"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithTargets sets the hierarchy node written for each skeleton bone index.
//
// Parameters:
//   - targets: bone index to node mapping, as returned by hierarchy.FromSkeleton
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the targets option to an animator
func WithTargets(targets map[int32]hierarchy.NodeID) AnimatorBuilderOption {
	return func(a *animator) {
		maps.Copy(a.targets, targets)
	}
}

// WithSkeleton captures the bind pose from the skeleton's bone rest transforms.
//
// Parameters:
//   - skel: the skeleton the targets were built from
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the skeleton option to an animator
func WithSkeleton(skel *model.Skeleton) AnimatorBuilderOption {
	return func(a *animator) {
		a.skeleton = skel
	}
}

// WithBindPoseFrom captures the bind pose from the current transforms of the target nodes.
// Ignored for bones covered by WithSkeleton.
//
// Parameters:
//   - store: the transform store holding the target nodes
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the bind pose option to an animator
func WithBindPoseFrom(store hierarchy.TransformStore) AnimatorBuilderOption {
	return func(a *animator) {
		a.bindStore = store
	}
}
