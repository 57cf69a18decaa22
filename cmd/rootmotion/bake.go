package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/curve_store"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/loader"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/scene"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/config"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var bakeCmd = &cobra.Command{
	Use:   "bake <model.gltf|model.glb>",
	Short: "Bake root motion for every animation of a model",
	Long: `Imports the model's skeleton and animations, authors one root motion node per
animation and bakes each into a curve. Curves persisted by an earlier run are reused
unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var opts bakeOptions
		opts.path = args[0]
		opts.force, _ = cmd.Flags().GetBool("force")
		bakeType, _ := cmd.Flags().GetString("type")
		if err := opts.bakeType.UnmarshalText([]byte(bakeType)); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results, err := runBake(ctx, cfg, logger, opts)
		printBakeResults(cmd.OutOrStdout(), results)
		return err
	},
}

func init() {
	bakeCmd.Flags().String("type", model.BakeTypeCenterOfGravity.String(), "bake type: cog or root_bone")
	bakeCmd.Flags().Bool("force", false, "rebake even when persisted curves exist")
	rootCmd.AddCommand(bakeCmd)
}

type bakeOptions struct {
	path     string
	bakeType model.RootMotionBakeType
	force    bool
}

type bakeStatus string

const (
	statusBaked   bakeStatus = "baked"
	statusReused  bakeStatus = "reused"
	statusSkipped bakeStatus = "skipped"
)

// bakeResult describes one root motion node after the run.
type bakeResult struct {
	Node         string
	BakeType     model.RootMotionBakeType
	Status       bakeStatus
	Reason       string
	Samples      int
	Displacement mgl32.Vec3
	Path         string
}

// runBake imports a model and bakes one root motion node per animation in a single engine tick.
func runBake(ctx context.Context, cfg config.Config, logger *slog.Logger, opts bakeOptions) ([]bakeResult, error) {
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	store, err := curve_store.NewCurveStore(storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open curve store: %w", err)
	}
	defer store.Close()

	imported, err := loader.NewLoader(loader.BackendTypeGLTF, loader.WithLogger(logger)).Load(opts.path)
	if err != nil {
		return nil, err
	}
	if len(imported.Animations) == 0 {
		return nil, fmt.Errorf("%s: model has no animations", opts.path)
	}

	clips := asset.NewAssets[*model.AnimationClip]()
	graphs := asset.NewAssets[animation_graph.AnimationGraph]()
	curves := asset.NewAssets[*model.RootMotionCurve]()
	flag := rootmotion.NewNeedsBaking(false)

	handles := loader.AddClips(imported, clips)
	graph := animation_graph.NewAnimationGraph(
		animation_graph.WithName(imported.Name),
		animation_graph.WithRootMotionHook(flag.GraphHook()),
	)
	for _, clip := range imported.Animations {
		if _, err := graph.AddClip(animation_graph.RootNode, clip.Name, handles[clip.Name], 1, animation_graph.WithRootMotion(opts.bakeType)); err != nil {
			return nil, err
		}
	}

	reused := make(map[animation_graph.NodeIndex]bool)
	if !opts.force {
		reused, err = restoreGraph(ctx, store, graph, curves)
		if err != nil {
			logger.Warn("persisted curves not reused", "graph", graph.Name(), "error", err)
		} else if len(reused) > 0 {
			logger.Info("reusing persisted curves", "graph", graph.Name(), "nodes", len(reused))
		}
	}

	obj, err := game_object.FromSkeleton(imported.Skeleton, graphs.Add(graph), game_object.WithName(imported.Name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.path, err)
	}
	sc := scene.NewScene(imported.Name, scene.WithActive(true), scene.WithObjects(obj), scene.WithLogger(logger))
	defer sc.Close()

	driverOpts := append(cfg.DriverOptions(), rootmotion.WithLogger(logger), rootmotion.WithCurvePath(curvePath))
	if cfg.MetricsAddr != "" {
		metrics, shutdown, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			return nil, err
		}
		defer shutdown()
		driverOpts = append(driverOpts, rootmotion.WithMetrics(metrics))
	}
	driver := rootmotion.NewDriver(clips, graphs, curves, flag, driverOpts...)

	eng := engine.NewEngine(driver,
		engine.WithScene(0, sc),
		engine.WithLogger(logger),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithCurveStore(store, curves, graphs),
		engine.WithPersistWorkers(cfg.Engine.PersistWorkers),
	)
	defer eng.Close()

	report, bakeErr := eng.Tick(ctx, 0)
	failures := eng.Flush()

	results := collectResults(graph, curves, report, reused)
	switch {
	case bakeErr != nil:
		return results, bakeErr
	case failures > 0:
		return results, fmt.Errorf("%d curve store writes failed", failures)
	case len(report.Skipped) > 0:
		return results, fmt.Errorf("%d root motion nodes could not be baked", len(report.Skipped))
	}
	return results, nil
}

// curvePath keys curves by graph, clip name and bake type.
func curvePath(graph animation_graph.AnimationGraph, _ animation_graph.NodeIndex, node animation_graph.Node) string {
	return fmt.Sprintf("rootmotion/%s/%s/%s", graph.Name(), node.Name, node.RootMotion.BakeType)
}

// restoreGraph attaches persisted curves to the graph's nodes when the stored manifest
// describes the same node with the same bake type.
func restoreGraph(ctx context.Context, store curve_store.CurveStore, graph animation_graph.AnimationGraph, curves asset.Assets[*model.RootMotionCurve]) (map[animation_graph.NodeIndex]bool, error) {
	reused := make(map[animation_graph.NodeIndex]bool)
	m, err := store.LoadManifest(ctx, graph.Name())
	if errors.Is(err, curve_store.ErrNotFound) {
		return reused, nil
	}
	if err != nil {
		return reused, err
	}

	m.Nodes = slices.DeleteFunc(m.Nodes, func(sn rootmotion.SerializedNode) bool {
		node, ok := graph.Node(sn.Index)
		return !ok || node.Name != sn.Name || node.RootMotion == nil || node.RootMotion.BakeType != sn.RootMotion.BakeType
	})
	if len(m.Nodes) == 0 {
		return reused, nil
	}

	if _, err := curve_store.Restore(ctx, store, curves); err != nil {
		return reused, err
	}
	_, applyErr := rootmotion.ApplySerializedGraph(graph, m, curves)
	for _, sn := range m.Nodes {
		if node, ok := graph.Node(sn.Index); ok && node.RootMotion.Baked() {
			reused[sn.Index] = true
		}
	}
	return reused, applyErr
}

func collectResults(graph animation_graph.AnimationGraph, curves asset.Assets[*model.RootMotionCurve], report rootmotion.BakeReport, reused map[animation_graph.NodeIndex]bool) []bakeResult {
	skipped := make(map[animation_graph.NodeIndex]string, len(report.Skipped))
	for _, s := range report.Skipped {
		skipped[s.Node] = s.Reason
	}

	var results []bakeResult
	for _, idx := range graph.RootMotionNodes() {
		node, ok := graph.Node(idx)
		if !ok {
			continue
		}
		r := bakeResult{Node: node.Name, BakeType: node.RootMotion.BakeType, Status: statusSkipped}
		if reason, ok := skipped[idx]; ok {
			r.Reason = reason
		}
		if node.RootMotion.Curve != nil {
			if curve, ok := curves.Get(*node.RootMotion.Curve); ok {
				r.Samples = curve.Len()
				r.Displacement = curve.Displacement(0, curve.Duration())
			}
			r.Path, _ = curves.Path(*node.RootMotion.Curve)
			r.Status = statusBaked
			if reused[idx] {
				r.Status = statusReused
			}
		}
		results = append(results, r)
	}
	return results
}

func printBakeResults(w io.Writer, results []bakeResult) {
	if len(results) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tTYPE\tSTATUS\tSAMPLES\tDISPLACEMENT\tPATH")
	for _, r := range results {
		status := string(r.Status)
		if r.Reason != "" {
			status += " (" + r.Reason + ")"
		}
		d := r.Displacement
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t(%.3f, %.3f, %.3f)\t%s\n", r.Node, r.BakeType, status, r.Samples, d.X(), d.Y(), d.Z(), r.Path)
	}
	tw.Flush()
}

// serveMetrics registers the bake collectors on a fresh registry and serves it at addr/metrics.
func serveMetrics(addr string, logger *slog.Logger) (*rootmotion.Metrics, func(), error) {
	reg := prometheus.NewRegistry()
	metrics, err := rootmotion.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return metrics, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
