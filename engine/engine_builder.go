package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/curve_store"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithStopWhenBaked makes Run return once a pass leaves no baking pending.
//
// Parameters:
//   - stop: whether Run stops when baking completes
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStopWhenBaked(stop bool) EngineBuilderOption {
	return func(e *engine) {
		e.stopWhenBaked = stop
	}
}

// WithLogger sets the engine logger. The profiler reports through the same logger.
//
// Parameters:
//   - logger: the logger, ignored when nil
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
//
// Parameters:
//   - key: the z-index determining bake order (lower bakes first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithCurveStore persists newly baked curves, and the manifests of the graphs they belong to,
// to store. curves must be the asset store the driver bakes into.
//
// Parameters:
//   - store: the persistence backend
//   - curves: the curve asset store
//   - graphs: the graph asset store, or nil to skip manifests
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCurveStore(store curve_store.CurveStore, curves asset.Assets[*model.RootMotionCurve], graphs asset.Assets[animation_graph.AnimationGraph]) EngineBuilderOption {
	return func(e *engine) {
		e.store = store
		e.curves = curves
		e.graphs = graphs
	}
}

// WithPersistWorkers sets the number of goroutines writing to the curve store.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPersistWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		if n < 1 {
			n = 1
		}
		e.persistWorkers = n
	}
}
