package rootmotion

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/go-gl/mathgl/mgl32"
)

// RootBoneSampler tracks the root-relative position of one named bone.
type RootBoneSampler struct {
	provider   hierarchy.HierarchyProvider
	transforms hierarchy.TransformStore
	names      hierarchy.NameLookup
	boneName   string
}

var _ Sampler = &RootBoneSampler{}

// NewRootBoneSampler creates a sampler for the bone with the given name.
// An empty name leaves the sampler without a designated bone; it then fails with
// ErrUnimplementedBakeType.
//
// Parameters:
//   - provider: structural queries
//   - transforms: local transform reads
//   - names: node names used to find the bone
//   - boneName: the designated root bone
//
// Returns:
//   - *RootBoneSampler: the sampler
func NewRootBoneSampler(provider hierarchy.HierarchyProvider, transforms hierarchy.TransformStore, names hierarchy.NameLookup, boneName string) *RootBoneSampler {
	return &RootBoneSampler{
		provider:   provider,
		transforms: transforms,
		names:      names,
		boneName:   boneName,
	}
}

func (s *RootBoneSampler) Sample(root hierarchy.NodeID) (mgl32.Vec3, error) {
	if s.boneName == "" {
		return mgl32.Vec3{}, fmt.Errorf("root bone without a designated bone: %w", ErrUnimplementedBakeType)
	}
	for _, id := range descendants(s.provider, root) {
		if name, ok := s.names.NameOf(id); ok && name == s.boneName {
			rel, err := RelativeTransform(s.provider, s.transforms, root, id)
			if err != nil {
				return mgl32.Vec3{}, err
			}
			return rel.Translation, nil
		}
	}
	return mgl32.Vec3{}, fmt.Errorf("root bone %q below root %d: %w", s.boneName, root, ErrMissingTransform)
}
