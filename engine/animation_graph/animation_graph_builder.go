package animation_graph

import "github.com/Carmen-Shannon/oxy-rootmotion/engine/model"

// AnimationGraphBuilderOption is a functional option for configuring an AnimationGraph during construction.
type AnimationGraphBuilderOption func(*animationGraph)

// NodeBuilderOption is a functional option for configuring a node as it is added.
type NodeBuilderOption func(*Node)

// WithName sets the graph's identifier. The name is used in default curve paths.
//
// Parameters:
//   - name: the graph name
//
// Returns:
//   - AnimationGraphBuilderOption: functional option to set the name
func WithName(name string) AnimationGraphBuilderOption {
	return func(g *animationGraph) {
		g.name = name
	}
}

// WithRootMotionHook registers a callback run whenever a node is authored with unbaked root motion.
// Hooks run outside the graph's lock.
//
// Parameters:
//   - hook: the callback
//
// Returns:
//   - AnimationGraphBuilderOption: functional option to register the hook
func WithRootMotionHook(hook RootMotionHook) AnimationGraphBuilderOption {
	return func(g *animationGraph) {
		if hook != nil {
			g.hooks = append(g.hooks, hook)
		}
	}
}

// WithRootMotion authors unbaked root motion on the node being added.
//
// Parameters:
//   - bakeType: the extraction strategy
//
// Returns:
//   - NodeBuilderOption: functional option to set the root motion data
func WithRootMotion(bakeType model.RootMotionBakeType) NodeBuilderOption {
	return func(n *Node) {
		n.RootMotion = &model.RootMotionData{BakeType: bakeType}
	}
}
