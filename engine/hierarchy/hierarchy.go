package hierarchy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
)

var (
	// ErrUnknownNode is returned when a NodeID does not exist in the hierarchy.
	ErrUnknownNode = errors.New("unknown hierarchy node")

	// ErrCycle is returned by Reparent when the move would make a node its own ancestor.
	ErrCycle = errors.New("reparent would create a cycle")
)

// NodeID identifies a node within one Hierarchy.
type NodeID uint32

// HierarchyProvider answers structural queries about a node tree.
type HierarchyProvider interface {
	// ChildrenOf returns the ordered children of a node.
	//
	// Parameters:
	//   - id: the parent node
	//
	// Returns:
	//   - []NodeID: a copy of the child list, empty for leaves and unknown nodes
	ChildrenOf(id NodeID) []NodeID

	// ParentOf returns the parent of a node.
	//
	// Parameters:
	//   - id: the child node
	//
	// Returns:
	//   - NodeID: the parent
	//   - bool: false for the root and for unknown nodes
	ParentOf(id NodeID) (NodeID, bool)
}

// TransformStore reads and writes node-local transforms.
type TransformStore interface {
	// Transform returns the local transform of a node.
	//
	// Parameters:
	//   - id: the node
	//
	// Returns:
	//   - model.Transform: the local transform
	//   - bool: false if the node does not exist
	Transform(id NodeID) (model.Transform, bool)

	// SetTransform replaces the local transform of a node.
	//
	// Parameters:
	//   - id: the node
	//   - t: the new local transform
	//
	// Returns:
	//   - error: ErrUnknownNode if the node does not exist
	SetTransform(id NodeID, t model.Transform) error
}

// NameLookup resolves optional node names.
type NameLookup interface {
	// NameOf returns the name of a node.
	//
	// Parameters:
	//   - id: the node
	//
	// Returns:
	//   - string: the name
	//   - bool: false if the node is unnamed or unknown
	NameOf(id NodeID) (string, bool)
}

type node struct {
	name     string
	named    bool
	local    model.Transform
	parent   NodeID
	children []NodeID
}

type hierarchy struct {
	mu     *sync.RWMutex
	access *sync.RWMutex

	root   NodeID
	nextID NodeID
	nodes  map[NodeID]*node
}

// Hierarchy is an in-memory SkeletonNode tree with a single root.
// Structure and transform access is thread-safe. Acquire and View additionally provide
// scoped exclusive and shared access for callers that need a consistent view across
// many reads and writes, such as a bake writing poses and reading them back.
type Hierarchy interface {
	HierarchyProvider
	TransformStore
	NameLookup

	// Root returns the root node of the tree.
	//
	// Returns:
	//   - NodeID: the root
	Root() NodeID

	// AddNode creates a new node as the last child of parent.
	//
	// Parameters:
	//   - parent: the parent node
	//   - local: the local transform relative to parent
	//   - options: functional options, e.g. WithName
	//
	// Returns:
	//   - NodeID: the new node
	//   - error: ErrUnknownNode if parent does not exist
	AddNode(parent NodeID, local model.Transform, options ...NodeBuilderOption) (NodeID, error)

	// Reparent moves a node and its subtree under a new parent, appended as the last child.
	//
	// Parameters:
	//   - id: the node to move
	//   - newParent: the new parent
	//
	// Returns:
	//   - error: ErrUnknownNode, or ErrCycle if newParent is id or one of its descendants
	Reparent(id NodeID, newParent NodeID) error

	// Descendants returns every node below id in depth-first pre-order, following child order.
	// The node itself is not included.
	//
	// Parameters:
	//   - id: the subtree root
	//
	// Returns:
	//   - []NodeID: the descendants
	Descendants(id NodeID) []NodeID

	// NodeByName returns the first node in depth-first order carrying the given name.
	//
	// Parameters:
	//   - name: the name to find
	//
	// Returns:
	//   - NodeID: the node
	//   - bool: true if found
	NodeByName(name string) (NodeID, bool)

	// Len returns the number of nodes including the root.
	Len() int

	// Acquire takes exclusive access to the hierarchy and returns its release function.
	// Release is idempotent. Other Acquire and View callers block until release.
	//
	// Returns:
	//   - func(): releases exclusive access
	Acquire() (release func())

	// View runs fn with shared access to the hierarchy.
	//
	// Parameters:
	//   - fn: the read-only callback
	View(fn func())
}

var _ Hierarchy = &hierarchy{}

// NewHierarchy creates a hierarchy containing only a root node.
//
// Parameters:
//   - options: functional options to configure the root
//
// Returns:
//   - Hierarchy: the new hierarchy
func NewHierarchy(options ...HierarchyBuilderOption) Hierarchy {
	h := &hierarchy{
		mu:     &sync.RWMutex{},
		access: &sync.RWMutex{},
		root:   0,
		nextID: 1,
		nodes: map[NodeID]*node{
			0: {local: model.IdentityTransform()},
		},
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *hierarchy) Root() NodeID {
	return h.root
}

func (h *hierarchy) ChildrenOf(id NodeID) []NodeID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), n.children...)
}

func (h *hierarchy) ParentOf(id NodeID) (NodeID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	if !ok || id == h.root {
		return 0, false
	}
	return n.parent, true
}

func (h *hierarchy) Transform(id NodeID) (model.Transform, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	if !ok {
		return model.Transform{}, false
	}
	return n.local, true
}

func (h *hierarchy) SetTransform(id NodeID, t model.Transform) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("set transform %d: %w", id, ErrUnknownNode)
	}
	n.local = t
	return nil
}

func (h *hierarchy) NameOf(id NodeID) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	if !ok || !n.named {
		return "", false
	}
	return n.name, true
}

func (h *hierarchy) AddNode(parent NodeID, local model.Transform, options ...NodeBuilderOption) (NodeID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.nodes[parent]
	if !ok {
		return 0, fmt.Errorf("add node under %d: %w", parent, ErrUnknownNode)
	}

	n := &node{local: local, parent: parent}
	for _, opt := range options {
		opt(n)
	}

	id := h.nextID
	h.nextID++
	h.nodes[id] = n
	p.children = append(p.children, id)
	return id, nil
}

func (h *hierarchy) Reparent(id NodeID, newParent NodeID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[id]
	if !ok || id == h.root {
		return fmt.Errorf("reparent %d: %w", id, ErrUnknownNode)
	}
	np, ok := h.nodes[newParent]
	if !ok {
		return fmt.Errorf("reparent %d under %d: %w", id, newParent, ErrUnknownNode)
	}

	for cur := newParent; ; {
		if cur == id {
			return fmt.Errorf("reparent %d under %d: %w", id, newParent, ErrCycle)
		}
		if cur == h.root {
			break
		}
		cur = h.nodes[cur].parent
	}

	old := h.nodes[n.parent]
	for i, c := range old.children {
		if c == id {
			old.children = append(old.children[:i], old.children[i+1:]...)
			break
		}
	}
	n.parent = newParent
	np.children = append(np.children, id)
	return nil
}

func (h *hierarchy) Descendants(id NodeID) []NodeID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start, ok := h.nodes[id]
	if !ok {
		return nil
	}

	var out []NodeID
	stack := make([]NodeID, 0, len(start.children))
	for i := len(start.children) - 1; i >= 0; i-- {
		stack = append(stack, start.children[i])
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)

		children := h.nodes[cur].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

func (h *hierarchy) NodeByName(name string) (NodeID, bool) {
	if n, ok := h.NameOf(h.root); ok && n == name {
		return h.root, true
	}
	for _, id := range h.Descendants(h.root) {
		if n, ok := h.NameOf(id); ok && n == name {
			return id, true
		}
	}
	return 0, false
}

func (h *hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

func (h *hierarchy) Acquire() func() {
	h.access.Lock()
	var once sync.Once
	return func() {
		once.Do(h.access.Unlock)
	}
}

func (h *hierarchy) View(fn func()) {
	h.access.RLock()
	defer h.access.RUnlock()
	fn()
}

// FromSkeleton builds a hierarchy from an imported skeleton. Bones are attached under a
// synthetic root node in skeleton order; each keeps its bone name and bind-pose local transform.
//
// Parameters:
//   - skel: the skeleton to convert
//   - options: functional options applied to the synthetic root
//
// Returns:
//   - Hierarchy: the built hierarchy
//   - map[int32]NodeID: the node created for each bone index
//   - error: if a bone references an out-of-range or cyclic parent
func FromSkeleton(skel *model.Skeleton, options ...HierarchyBuilderOption) (Hierarchy, map[int32]NodeID, error) {
	h := NewHierarchy(options...)
	if skel == nil {
		return h, map[int32]NodeID{}, nil
	}

	ids := make(map[int32]NodeID, len(skel.Bones))
	remaining := len(skel.Bones)
	for remaining > 0 {
		progressed := false
		for i, bone := range skel.Bones {
			idx := int32(i)
			if _, done := ids[idx]; done {
				continue
			}

			parent := h.Root()
			if bone.ParentIndex >= 0 {
				if int(bone.ParentIndex) >= len(skel.Bones) {
					return nil, nil, fmt.Errorf("bone %q: parent index %d out of range", bone.Name, bone.ParentIndex)
				}
				p, ok := ids[bone.ParentIndex]
				if !ok {
					continue
				}
				parent = p
			}

			var opts []NodeBuilderOption
			if bone.Name != "" {
				opts = append(opts, WithName(bone.Name))
			}
			id, err := h.AddNode(parent, bone.LocalTransform, opts...)
			if err != nil {
				return nil, nil, err
			}
			ids[idx] = id
			remaining--
			progressed = true
		}
		if !progressed {
			return nil, nil, fmt.Errorf("skeleton has %d bones with cyclic parents", remaining)
		}
	}
	return h, ids, nil
}
