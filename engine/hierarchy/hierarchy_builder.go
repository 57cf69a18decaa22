package hierarchy

import "github.com/Carmen-Shannon/oxy-rootmotion/engine/model"

// HierarchyBuilderOption is a functional option for configuring a Hierarchy during construction.
type HierarchyBuilderOption func(*hierarchy)

// NodeBuilderOption is a functional option for configuring a node added with AddNode.
type NodeBuilderOption func(*node)

// WithRootName names the root node.
//
// Parameters:
//   - name: the root name
//
// Returns:
//   - HierarchyBuilderOption: functional option to set the root name
func WithRootName(name string) HierarchyBuilderOption {
	return func(h *hierarchy) {
		r := h.nodes[h.root]
		r.name = name
		r.named = true
	}
}

// WithRootTransform sets the root's local transform. The root's own transform never
// contributes to root-relative positions.
//
// Parameters:
//   - t: the root transform
//
// Returns:
//   - HierarchyBuilderOption: functional option to set the root transform
func WithRootTransform(t model.Transform) HierarchyBuilderOption {
	return func(h *hierarchy) {
		h.nodes[h.root].local = t
	}
}

// WithName names a node. An empty name still counts as named.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - NodeBuilderOption: functional option to set the node name
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
		n.named = true
	}
}
