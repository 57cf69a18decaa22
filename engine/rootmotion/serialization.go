package rootmotion

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
)

// SerializedCurveRef references a curve asset either by stable path or by raw id.
// Exactly one of the two is set.
type SerializedCurveRef struct {
	Path string    `json:"path,omitempty" yaml:"path,omitempty"`
	ID   *asset.ID `json:"id,omitempty" yaml:"id,omitempty"`
}

// Unstable reports whether the reference uses a raw id, which does not survive store rebuilds.
func (r SerializedCurveRef) Unstable() bool {
	return r.Path == "" && r.ID != nil
}

// SerializedRootMotionData is the persisted form of RootMotionData. Curve is omitted while unbaked.
type SerializedRootMotionData struct {
	BakeType model.RootMotionBakeType `json:"bake_type" yaml:"bake_type"`
	Curve    *SerializedCurveRef      `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// SerializedNode is one root motion node of a GraphManifest.
type SerializedNode struct {
	Index      animation_graph.NodeIndex `json:"index" yaml:"index"`
	Name       string                    `json:"name" yaml:"name"`
	RootMotion SerializedRootMotionData  `json:"root_motion" yaml:"root_motion"`
}

// GraphManifest is the persisted root motion state of one animation graph.
type GraphManifest struct {
	Graph string           `json:"graph" yaml:"graph"`
	Nodes []SerializedNode `json:"nodes" yaml:"nodes"`
}

// Serialize converts root motion data into its persisted form. The curve is written by
// path when the store tracks one, otherwise by id.
//
// Parameters:
//   - data: the root motion data
//   - curves: the curve store the handle belongs to
//
// Returns:
//   - SerializedRootMotionData: the persisted form
//   - error: *AssetResolutionError if the curve handle does not resolve
func Serialize(data model.RootMotionData, curves asset.Assets[*model.RootMotionCurve]) (SerializedRootMotionData, error) {
	out := SerializedRootMotionData{BakeType: data.BakeType}
	if data.Curve == nil {
		return out, nil
	}

	h := *data.Curve
	if path, ok := curves.Path(h); ok {
		out.Curve = &SerializedCurveRef{Path: path}
		return out, nil
	}
	id := h.ID()
	if !curves.Contains(h) {
		return SerializedRootMotionData{}, &AssetResolutionError{ID: &id}
	}
	out.Curve = &SerializedCurveRef{ID: &id}
	return out, nil
}

// Deserialize resolves persisted root motion data against a curve store, trying the path
// before the id.
//
// Parameters:
//   - s: the persisted form
//   - curves: the curve store to resolve against
//
// Returns:
//   - model.RootMotionData: the resolved data, unbaked when s has no curve
//   - error: *AssetResolutionError when neither path nor id resolves
func Deserialize(s SerializedRootMotionData, curves asset.Assets[*model.RootMotionCurve]) (model.RootMotionData, error) {
	out := model.RootMotionData{BakeType: s.BakeType}
	if s.Curve == nil {
		return out, nil
	}

	if s.Curve.Path != "" {
		if h, ok := curves.ByPath(s.Curve.Path); ok {
			out.Curve = &h
			return out, nil
		}
	}
	if s.Curve.ID != nil {
		h := asset.HandleFromID[*model.RootMotionCurve](*s.Curve.ID)
		if curves.Contains(h) {
			out.Curve = &h
			return out, nil
		}
	}
	return model.RootMotionData{}, &AssetResolutionError{Path: s.Curve.Path, ID: s.Curve.ID}
}

// SerializeGraph serializes every root motion node of a graph.
//
// Parameters:
//   - graph: the graph
//   - curves: the curve store
//
// Returns:
//   - GraphManifest: the manifest
//   - error: the first node that failed to serialize
func SerializeGraph(graph animation_graph.AnimationGraph, curves asset.Assets[*model.RootMotionCurve]) (GraphManifest, error) {
	m := GraphManifest{Graph: graph.Name()}
	for _, idx := range graph.RootMotionNodes() {
		node, ok := graph.Node(idx)
		if !ok || node.RootMotion == nil {
			continue
		}
		s, err := Serialize(*node.RootMotion, curves)
		if err != nil {
			return GraphManifest{}, fmt.Errorf("graph %q node %d: %w", graph.Name(), idx, err)
		}
		m.Nodes = append(m.Nodes, SerializedNode{Index: idx, Name: node.Name, RootMotion: s})
	}
	return m, nil
}

// ApplySerializedGraph restores a manifest onto a graph. Nodes without root motion are
// authored with the manifest's bake type; baked entries are resolved and attached.
// Nodes already baked with the same curve are left alone. Every failing node is reported.
//
// Parameters:
//   - graph: the graph to restore onto
//   - m: the manifest
//   - curves: the curve store to resolve against
//
// Returns:
//   - int: the number of curves attached
//   - error: the joined per-node errors
func ApplySerializedGraph(graph animation_graph.AnimationGraph, m GraphManifest, curves asset.Assets[*model.RootMotionCurve]) (int, error) {
	var errs []error
	attached := 0
	for _, sn := range m.Nodes {
		node, ok := graph.Node(sn.Index)
		if !ok {
			errs = append(errs, fmt.Errorf("node %d %q: %w", sn.Index, sn.Name, animation_graph.ErrUnknownNode))
			continue
		}

		data, err := Deserialize(sn.RootMotion, curves)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %d %q: %w", sn.Index, sn.Name, err))
			continue
		}

		if node.RootMotion == nil {
			if err := graph.SetRootMotion(sn.Index, data.BakeType); err != nil {
				errs = append(errs, err)
				continue
			}
		} else if node.RootMotion.Baked() {
			if data.Curve != nil && *node.RootMotion.Curve == *data.Curve {
				continue
			}
			if data.Curve != nil {
				errs = append(errs, fmt.Errorf("node %d %q: %w", sn.Index, sn.Name, animation_graph.ErrAlreadyBaked))
			}
			continue
		}

		if data.Curve == nil {
			continue
		}
		if err := graph.SetRootMotionCurve(sn.Index, *data.Curve); err != nil {
			errs = append(errs, err)
			continue
		}
		attached++
	}
	return attached, errors.Join(errs...)
}
