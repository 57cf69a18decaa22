package animation_graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
)

var (
	// ErrUnknownNode is returned when a NodeIndex does not exist in the graph.
	ErrUnknownNode = errors.New("unknown animation graph node")

	// ErrNoRootMotion is returned when a root motion curve is assigned to a node without RootMotionData.
	ErrNoRootMotion = errors.New("node has no root motion data")

	// ErrAlreadyBaked is returned when a curve is assigned to a node whose curve is already set.
	ErrAlreadyBaked = errors.New("node root motion already baked")
)

// NodeIndex identifies a node within one AnimationGraph.
type NodeIndex int

// RootNode is the index of the blend node every graph is created with.
const RootNode NodeIndex = 0

// RootMotionHook is invoked whenever a node is authored with unbaked root motion.
type RootMotionHook func(graph string, node NodeIndex)

// Node is a snapshot of an animation graph node.
type Node struct {
	// Name is the authoring name of the node.
	Name string

	// Clip references the clip played by this node, or nil for blend nodes.
	Clip *asset.Handle[*model.AnimationClip]

	// Weight is the node's blend weight.
	Weight float32

	// RootMotion marks the node for root motion extraction, or nil.
	RootMotion *model.RootMotionData

	// Children lists the node's children in authoring order.
	Children []NodeIndex
}

type animationGraph struct {
	mu *sync.RWMutex

	name  string
	nodes []*Node
	hooks []RootMotionHook
}

// AnimationGraph is a tree of clip and blend nodes. Any node may carry RootMotionData;
// the data is authored unbaked and receives its curve exactly once through SetRootMotionCurve.
// Thread-safe for concurrent access.
type AnimationGraph interface {
	// Name returns the graph's identifier.
	Name() string

	// AddClip adds a clip node under parent.
	//
	// Parameters:
	//   - parent: the parent node
	//   - name: the node name
	//   - clip: the clip handle
	//   - weight: the blend weight
	//   - options: node options, e.g. WithRootMotion
	//
	// Returns:
	//   - NodeIndex: the new node
	//   - error: ErrUnknownNode if parent does not exist
	AddClip(parent NodeIndex, name string, clip asset.Handle[*model.AnimationClip], weight float32, options ...NodeBuilderOption) (NodeIndex, error)

	// AddBlend adds a blend node without a clip under parent.
	//
	// Parameters:
	//   - parent: the parent node
	//   - name: the node name
	//   - weight: the blend weight
	//   - options: node options
	//
	// Returns:
	//   - NodeIndex: the new node
	//   - error: ErrUnknownNode if parent does not exist
	AddBlend(parent NodeIndex, name string, weight float32, options ...NodeBuilderOption) (NodeIndex, error)

	// Len returns the number of nodes including the root.
	Len() int

	// Nodes returns every node index in ascending order.
	Nodes() []NodeIndex

	// Node returns a snapshot of a node. Mutating the snapshot does not affect the graph.
	//
	// Parameters:
	//   - idx: the node
	//
	// Returns:
	//   - Node: the snapshot
	//   - bool: false if the node does not exist
	Node(idx NodeIndex) (Node, bool)

	// SetRootMotion authors unbaked root motion on a node, replacing any existing data,
	// and notifies the root motion hooks.
	//
	// Parameters:
	//   - idx: the node
	//   - bakeType: the extraction strategy
	//
	// Returns:
	//   - error: ErrUnknownNode if the node does not exist
	SetRootMotion(idx NodeIndex, bakeType model.RootMotionBakeType) error

	// SetRootMotionCurve populates the curve of a node's root motion data.
	//
	// Parameters:
	//   - idx: the node
	//   - curve: the baked curve handle
	//
	// Returns:
	//   - error: ErrUnknownNode, ErrNoRootMotion, or ErrAlreadyBaked
	SetRootMotionCurve(idx NodeIndex, curve asset.Handle[*model.RootMotionCurve]) error

	// RootMotionNodes returns the indices of nodes carrying RootMotionData, in ascending order.
	RootMotionNodes() []NodeIndex

	// Unbaked reports whether any node carries RootMotionData without a curve.
	Unbaked() bool
}

var _ AnimationGraph = &animationGraph{}

// NewAnimationGraph creates a graph containing only the root blend node.
//
// Parameters:
//   - options: functional options to configure the graph
//
// Returns:
//   - AnimationGraph: the new graph
func NewAnimationGraph(options ...AnimationGraphBuilderOption) AnimationGraph {
	g := &animationGraph{
		mu:    &sync.RWMutex{},
		nodes: []*Node{{Name: "root", Weight: 1}},
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *animationGraph) Name() string {
	return g.name
}

func (g *animationGraph) AddClip(parent NodeIndex, name string, clip asset.Handle[*model.AnimationClip], weight float32, options ...NodeBuilderOption) (NodeIndex, error) {
	return g.add(parent, &Node{Name: name, Clip: &clip, Weight: weight}, options)
}

func (g *animationGraph) AddBlend(parent NodeIndex, name string, weight float32, options ...NodeBuilderOption) (NodeIndex, error) {
	return g.add(parent, &Node{Name: name, Weight: weight}, options)
}

func (g *animationGraph) add(parent NodeIndex, n *Node, options []NodeBuilderOption) (NodeIndex, error) {
	for _, opt := range options {
		opt(n)
	}

	g.mu.Lock()
	if !g.valid(parent) {
		g.mu.Unlock()
		return 0, fmt.Errorf("add %q under %d: %w", n.Name, parent, ErrUnknownNode)
	}
	idx := NodeIndex(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.nodes[parent].Children = append(g.nodes[parent].Children, idx)
	hooks := g.hooks
	g.mu.Unlock()

	if n.RootMotion != nil && !n.RootMotion.Baked() {
		g.notify(hooks, idx)
	}
	return idx, nil
}

// valid assumes the lock is held.
func (g *animationGraph) valid(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(g.nodes)
}

func (g *animationGraph) notify(hooks []RootMotionHook, idx NodeIndex) {
	for _, hook := range hooks {
		hook(g.name, idx)
	}
}

func (g *animationGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *animationGraph) Nodes() []NodeIndex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]NodeIndex, len(g.nodes))
	for i := range g.nodes {
		out[i] = NodeIndex(i)
	}
	return out
}

func (g *animationGraph) Node(idx NodeIndex) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(idx) {
		return Node{}, false
	}

	n := *g.nodes[idx]
	n.Children = append([]NodeIndex(nil), n.Children...)
	if n.Clip != nil {
		clip := *n.Clip
		n.Clip = &clip
	}
	if n.RootMotion != nil {
		rm := *n.RootMotion
		if rm.Curve != nil {
			curve := *rm.Curve
			rm.Curve = &curve
		}
		n.RootMotion = &rm
	}
	return n, true
}

func (g *animationGraph) SetRootMotion(idx NodeIndex, bakeType model.RootMotionBakeType) error {
	g.mu.Lock()
	if !g.valid(idx) {
		g.mu.Unlock()
		return fmt.Errorf("set root motion on %d: %w", idx, ErrUnknownNode)
	}
	g.nodes[idx].RootMotion = &model.RootMotionData{BakeType: bakeType}
	hooks := g.hooks
	g.mu.Unlock()

	g.notify(hooks, idx)
	return nil
}

func (g *animationGraph) SetRootMotionCurve(idx NodeIndex, curve asset.Handle[*model.RootMotionCurve]) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.valid(idx) {
		return fmt.Errorf("set root motion curve on %d: %w", idx, ErrUnknownNode)
	}
	rm := g.nodes[idx].RootMotion
	if rm == nil {
		return fmt.Errorf("set root motion curve on %d: %w", idx, ErrNoRootMotion)
	}
	if rm.Curve != nil {
		return fmt.Errorf("set root motion curve on %d: %w", idx, ErrAlreadyBaked)
	}
	rm.Curve = &curve
	return nil
}

func (g *animationGraph) RootMotionNodes() []NodeIndex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []NodeIndex
	for i, n := range g.nodes {
		if n.RootMotion != nil {
			out = append(out, NodeIndex(i))
		}
	}
	return out
}

func (g *animationGraph) Unbaked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		if n.RootMotion != nil && n.RootMotion.Curve == nil {
			return true
		}
	}
	return false
}
