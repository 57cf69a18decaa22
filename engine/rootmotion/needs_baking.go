package rootmotion

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
)

// NeedsBaking marks that unbaked root motion nodes may remain. It starts clear, is set
// whenever a node is authored with unbaked root motion, and is cleared by a bake pass
// that finds nothing pending. Safe for concurrent use.
type NeedsBaking struct {
	pending atomic.Bool
}

// NewNeedsBaking creates a flag in the given initial state.
//
// Parameters:
//   - pending: the initial state
//
// Returns:
//   - *NeedsBaking: the flag
func NewNeedsBaking(pending bool) *NeedsBaking {
	f := &NeedsBaking{}
	f.pending.Store(pending)
	return f
}

// Set marks baking as pending.
func (f *NeedsBaking) Set() {
	f.pending.Store(true)
}

// Clear marks baking as complete.
func (f *NeedsBaking) Clear() {
	f.pending.Store(false)
}

// Pending reports whether baking is pending.
func (f *NeedsBaking) Pending() bool {
	return f.pending.Load()
}

// GraphHook returns an animation graph hook that sets the flag whenever root motion is authored.
//
// Returns:
//   - animation_graph.RootMotionHook: the hook, for use with animation_graph.WithRootMotionHook
func (f *NeedsBaking) GraphHook() animation_graph.RootMotionHook {
	return func(string, animation_graph.NodeIndex) {
		f.Set()
	}
}
