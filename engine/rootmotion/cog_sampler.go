package rootmotion

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMarkerPrefix is the name prefix that marks a named node as mass-bearing.
const DefaultMarkerPrefix = "DEF"

// MassPolicy decides which hierarchy nodes contribute to the center of gravity.
type MassPolicy struct {
	// MarkerPrefix marks a named node as mass-bearing when its name starts with it.
	MarkerPrefix string

	// UnnamedMassBearing makes nodes without a name mass-bearing.
	UnnamedMassBearing bool
}

// DefaultMassPolicy returns the policy used when none is configured: "DEF"-prefixed names
// and unnamed nodes bear mass.
func DefaultMassPolicy() MassPolicy {
	return MassPolicy{MarkerPrefix: DefaultMarkerPrefix, UnnamedMassBearing: true}
}

// Sampler reads one root-relative point from a posed hierarchy.
type Sampler interface {
	// Sample evaluates the sampler against the current transforms below root.
	//
	// Parameters:
	//   - root: the skeleton root node
	//
	// Returns:
	//   - mgl32.Vec3: the root-relative point
	//   - error: if the point cannot be computed
	Sample(root hierarchy.NodeID) (mgl32.Vec3, error)
}

// CogSampler computes the unweighted mean root-relative position of all mass-bearing descendants.
type CogSampler struct {
	provider   hierarchy.HierarchyProvider
	transforms hierarchy.TransformStore
	names      hierarchy.NameLookup
	policy     MassPolicy
}

var _ Sampler = &CogSampler{}

// NewCogSampler creates a center of gravity sampler over the given collaborators.
//
// Parameters:
//   - provider: structural queries
//   - transforms: local transform reads
//   - names: node names for the mass policy
//   - policy: the mass policy
//
// Returns:
//   - *CogSampler: the sampler
func NewCogSampler(provider hierarchy.HierarchyProvider, transforms hierarchy.TransformStore, names hierarchy.NameLookup, policy MassPolicy) *CogSampler {
	return &CogSampler{
		provider:   provider,
		transforms: transforms,
		names:      names,
		policy:     policy,
	}
}

// IsMassBearing reports whether a node contributes to the center of gravity.
//
// Parameters:
//   - id: the node
//
// Returns:
//   - bool: true if the node bears mass
func (s *CogSampler) IsMassBearing(id hierarchy.NodeID) bool {
	name, named := s.names.NameOf(id)
	if !named {
		return s.policy.UnnamedMassBearing
	}
	return strings.HasPrefix(name, s.policy.MarkerPrefix)
}

func (s *CogSampler) Sample(root hierarchy.NodeID) (mgl32.Vec3, error) {
	var sum mgl32.Vec3
	count := 0
	for _, id := range descendants(s.provider, root) {
		if !s.IsMassBearing(id) {
			continue
		}
		rel, err := RelativeTransform(s.provider, s.transforms, root, id)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		sum = sum.Add(rel.Translation)
		count++
	}
	if count == 0 {
		return mgl32.Vec3{}, ErrZeroMassNodes
	}
	return sum.Mul(1 / float32(count)), nil
}

// RelativeTransform composes the local transforms from id up to, but excluding, root.
//
// Parameters:
//   - provider: structural queries
//   - transforms: local transform reads
//   - root: the ancestor the result is expressed in
//   - id: the node to resolve
//
// Returns:
//   - model.Transform: id's transform in root space
//   - error: ErrMissingTransform if a transform is absent or root is not an ancestor of id
func RelativeTransform(provider hierarchy.HierarchyProvider, transforms hierarchy.TransformStore, root, id hierarchy.NodeID) (model.Transform, error) {
	res, ok := transforms.Transform(id)
	if !ok {
		return model.Transform{}, fmt.Errorf("node %d: %w", id, ErrMissingTransform)
	}
	for cur := id; ; {
		parent, ok := provider.ParentOf(cur)
		if !ok {
			return model.Transform{}, fmt.Errorf("node %d is not below root %d: %w", id, root, ErrMissingTransform)
		}
		if parent == root {
			return res, nil
		}
		pt, ok := transforms.Transform(parent)
		if !ok {
			return model.Transform{}, fmt.Errorf("node %d: %w", parent, ErrMissingTransform)
		}
		res = pt.Mul(res)
		cur = parent
	}
}

// descendants walks the subtree below root depth-first in child order.
func descendants(provider hierarchy.HierarchyProvider, root hierarchy.NodeID) []hierarchy.NodeID {
	var out []hierarchy.NodeID
	var walk func(id hierarchy.NodeID)
	walk = func(id hierarchy.NodeID) {
		for _, c := range provider.ChildrenOf(id) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(root)
	return out
}
