package rootmotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animator"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
	"github.com/go-gl/mathgl/mgl32"
)

// Owner is one bake target: a skeleton root inside a hierarchy, the pose evaluator driving
// that skeleton, and the animation graph whose root motion nodes are baked against it.
type Owner struct {
	Name      string
	Root      hierarchy.NodeID
	Hierarchy hierarchy.Hierarchy
	Player    animator.PoseEvaluator
	Graph     asset.Handle[animation_graph.AnimationGraph]
}

// BakedNode describes a node baked during a pass.
type BakedNode struct {
	Owner   string
	Graph   asset.Handle[animation_graph.AnimationGraph]
	Node    animation_graph.NodeIndex
	Curve   asset.Handle[*model.RootMotionCurve]
	Path    string
	Samples int
}

// SkippedNode describes a node, or a whole owner when Node is -1, skipped during a pass.
type SkippedNode struct {
	Owner  string
	Node   animation_graph.NodeIndex
	Reason string
	Err    error
}

// BakeReport summarizes one bake pass.
type BakeReport struct {
	Baked   []BakedNode
	Skipped []SkippedNode
	Samples int

	// Pending is true when unbaked root motion remains after the pass.
	Pending bool
}

// CurvePathFunc derives the stable asset path for a baked curve. An empty result stores the
// curve without a path, so it can only be serialized by its unstable id.
type CurvePathFunc func(graph animation_graph.AnimationGraph, idx animation_graph.NodeIndex, node animation_graph.Node) string

// DefaultCurvePath returns "rootmotion/<graph>/<node index>", or "" for unnamed graphs.
func DefaultCurvePath(graph animation_graph.AnimationGraph, idx animation_graph.NodeIndex, _ animation_graph.Node) string {
	if graph.Name() == "" {
		return ""
	}
	return fmt.Sprintf("rootmotion/%s/%d", graph.Name(), idx)
}

type driver struct {
	clips  asset.Assets[*model.AnimationClip]
	graphs asset.Assets[animation_graph.AnimationGraph]
	curves asset.Assets[*model.RootMotionCurve]
	flag   *NeedsBaking

	sampleRate   float32
	massPolicy   MassPolicy
	rootBoneName string
	curvePath    CurvePathFunc
	logger       *slog.Logger
	metrics      *Metrics
}

// Driver runs bake passes: every unbaked root motion node of every owner's graph is sampled
// at a fixed rate into a curve asset which is then attached to the node.
//
// Per-node failures are soft; the node is skipped, reported and retried on the next pass.
// A curve length mismatch aborts the pass. The owner's hierarchy is held exclusively for
// the whole of each node's bake. Passes are single-threaded.
type Driver interface {
	// Bake runs one pass over owners. The context is checked between nodes only.
	// The needs-baking flag is cleared when the pass leaves nothing pending.
	//
	// Parameters:
	//   - ctx: cancellation between nodes
	//   - owners: the bake targets
	//
	// Returns:
	//   - BakeReport: what was baked and skipped
	//   - error: ErrCurveLengthMismatch or the context's error; the flag is left untouched
	Bake(ctx context.Context, owners []Owner) (BakeReport, error)

	// NeedsBaking returns the flag this driver clears.
	NeedsBaking() *NeedsBaking

	// SampleRate returns the samples taken per second of clip time.
	SampleRate() float32
}

var _ Driver = &driver{}

// NewDriver creates a bake driver over the given asset stores.
//
// Parameters:
//   - clips: the animation clip store
//   - graphs: the animation graph store
//   - curves: the curve store baked curves are added to
//   - flag: the needs-baking flag, or nil to create one that starts set
//   - options: functional options to configure the driver
//
// Returns:
//   - Driver: the new driver
func NewDriver(clips asset.Assets[*model.AnimationClip], graphs asset.Assets[animation_graph.AnimationGraph], curves asset.Assets[*model.RootMotionCurve], flag *NeedsBaking, options ...DriverBuilderOption) Driver {
	if flag == nil {
		flag = NewNeedsBaking(true)
	}
	d := &driver{
		clips:      clips,
		graphs:     graphs,
		curves:     curves,
		flag:       flag,
		sampleRate: DefaultSampleRate,
		massPolicy: DefaultMassPolicy(),
		curvePath:  DefaultCurvePath,
		logger:     logging.NewNop(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *driver) NeedsBaking() *NeedsBaking {
	return d.flag
}

func (d *driver) SampleRate() float32 {
	return d.sampleRate
}

func (d *driver) Bake(ctx context.Context, owners []Owner) (BakeReport, error) {
	start := time.Now()
	var report BakeReport
	defer func() {
		if d.metrics != nil {
			d.metrics.BakeDuration.Observe(time.Since(start).Seconds())
		}
	}()

	for _, owner := range owners {
		graph, ok := d.graphs.Get(owner.Graph)
		if !ok || graph == nil {
			d.skip(&report, owner, -1, fmt.Errorf("owner %q graph %s: %w", owner.Name, owner.Graph, ErrMissingGraph))
			continue
		}

		for _, idx := range graph.RootMotionNodes() {
			if err := ctx.Err(); err != nil {
				report.Pending = true
				return report, err
			}

			node, ok := graph.Node(idx)
			if !ok || node.RootMotion == nil {
				d.skip(&report, owner, idx, fmt.Errorf("node %d: %w", idx, ErrMissingRootMotionData))
				continue
			}
			if node.RootMotion.Baked() {
				continue
			}

			baked, err := d.bakeNode(owner, idx, node)
			if errors.Is(err, ErrCurveLengthMismatch) {
				report.Pending = true
				d.logger.Error("root motion bake aborted", "owner", owner.Name, "graph", graph.Name(), "node", idx, "error", err)
				return report, err
			}
			if err != nil {
				d.skip(&report, owner, idx, err)
				continue
			}

			report.Baked = append(report.Baked, baked)
			report.Samples += baked.Samples
			if d.metrics != nil {
				d.metrics.NodesBaked.Inc()
				d.metrics.Samples.Add(float64(baked.Samples))
			}
			d.logger.Info("root motion baked",
				"owner", owner.Name,
				"graph", graph.Name(),
				"node", idx,
				"samples", baked.Samples,
				"curve", baked.Curve.String(),
				"path", baked.Path,
			)
		}
	}

	if !report.Pending {
		d.flag.Clear()
	}
	return report, nil
}

func (d *driver) skip(report *BakeReport, owner Owner, idx animation_graph.NodeIndex, err error) {
	reason := skipReason(err)
	report.Pending = true
	report.Skipped = append(report.Skipped, SkippedNode{Owner: owner.Name, Node: idx, Reason: reason, Err: err})
	if d.metrics != nil {
		d.metrics.NodesSkipped.WithLabelValues(reason).Inc()
	}
	d.logger.Warn("root motion node skipped", "owner", owner.Name, "node", idx, "reason", reason, "error", err)
}

func (d *driver) bakeNode(owner Owner, idx animation_graph.NodeIndex, node animation_graph.Node) (BakedNode, error) {
	if owner.Hierarchy == nil || owner.Player == nil {
		return BakedNode{}, fmt.Errorf("owner %q: %w", owner.Name, ErrInvalidOwner)
	}
	if node.Clip == nil {
		return BakedNode{}, fmt.Errorf("node %d %q has no clip: %w", idx, node.Name, ErrMissingClip)
	}
	clip, ok := d.clips.Get(*node.Clip)
	if !ok || clip == nil {
		return BakedNode{}, fmt.Errorf("node %d %q clip %s: %w", idx, node.Name, *node.Clip, ErrMissingClip)
	}

	sampler, err := d.samplerFor(owner.Hierarchy, node.RootMotion.BakeType)
	if err != nil {
		return BakedNode{}, err
	}

	release := owner.Hierarchy.Acquire()
	defer release()

	times := SampleTimes(clip.Duration, d.sampleRate)
	positions := make([]mgl32.Vec3, 0, len(times))
	for _, t := range times {
		if err := owner.Player.ScrubTo(clip, t); err != nil {
			return BakedNode{}, fmt.Errorf("scrub to %v: %w", t, err)
		}
		if err := owner.Player.ApplyPose(owner.Hierarchy); err != nil {
			return BakedNode{}, fmt.Errorf("apply pose at %v: %w", t, err)
		}
		p, err := sampler.Sample(owner.Root)
		if err != nil {
			return BakedNode{}, fmt.Errorf("sample at %v: %w", t, err)
		}
		positions = append(positions, p)
	}

	curve, err := BuildCurve(times, positions)
	if err != nil {
		return BakedNode{}, err
	}

	target, ok := d.graphs.GetMut(owner.Graph)
	if !ok || target == nil {
		return BakedNode{}, fmt.Errorf("owner %q graph %s: %w", owner.Name, owner.Graph, ErrMissingGraph)
	}

	path := d.curvePath(target, idx, node)
	handle, path := d.storeCurve(path, curve)
	if err := target.SetRootMotionCurve(idx, handle); err != nil {
		d.curves.Remove(handle)
		return BakedNode{}, err
	}

	return BakedNode{
		Owner:   owner.Name,
		Graph:   owner.Graph,
		Node:    idx,
		Curve:   handle,
		Path:    path,
		Samples: len(times),
	}, nil
}

// storeCurve adds the curve at path, falling back to an unpathed asset when the path is empty or taken.
func (d *driver) storeCurve(path string, curve *model.RootMotionCurve) (asset.Handle[*model.RootMotionCurve], string) {
	if path == "" {
		return d.curves.Add(curve), ""
	}
	h, err := d.curves.AddWithPath(path, curve)
	if err != nil {
		d.logger.Warn("curve path unavailable, storing by id", "path", path, "error", err)
		return d.curves.Add(curve), ""
	}
	return h, path
}

func (d *driver) samplerFor(h hierarchy.Hierarchy, bakeType model.RootMotionBakeType) (Sampler, error) {
	switch bakeType {
	case model.BakeTypeCenterOfGravity:
		return NewCogSampler(h, h, h, d.massPolicy), nil
	case model.BakeTypeRootBone:
		if d.rootBoneName == "" {
			return nil, fmt.Errorf("%s: %w", bakeType, ErrUnimplementedBakeType)
		}
		return NewRootBoneSampler(h, h, h, d.rootBoneName), nil
	default:
		return nil, fmt.Errorf("%s: %w", bakeType, ErrUnimplementedBakeType)
	}
}
