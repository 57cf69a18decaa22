package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animation_graph"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/curve_store"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/scene"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
)

// DefaultPersistWorkers is the number of persistence workers used when none is configured.
const DefaultPersistWorkers = 4

// ErrAlreadyRunning is returned by Run while another Run call is active.
var ErrAlreadyRunning = errors.New("engine already running")

// engine implements the Engine interface.
// Coordinates the tick loop, bake passes and curve persistence.
type engine struct {
	mu *sync.RWMutex

	driver rootmotion.Driver

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	logger *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	stopWhenBaked  bool

	scenes map[int]scene.Scene

	store          curve_store.CurveStore
	curves         asset.Assets[*model.RootMotionCurve]
	graphs         asset.Assets[animation_graph.AnimationGraph]
	persistPool    worker.DynamicWorkerPool
	persistWorkers int
	persistWG      sync.WaitGroup
	persistSeq     atomic.Int64
	persistErrors  atomic.Int64
	closeOnce      sync.Once
}

// Engine is the main entry point for baking.
// Each tick it runs a bake pass over the owners of every active scene while baking is
// pending, advances scene playback, and hands newly baked curves to the curve store.
type Engine interface {
	// Driver returns the bake driver the engine runs.
	Driver() rootmotion.Driver

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called at the end of each tick.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddScene registers a scene at the given z-index key.
	// Scene owners are baked in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining bake order (lower bakes first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Tick runs one engine step: a bake pass over the owners of every active scene when
	// baking is pending, then playback of every active scene. Curves baked during the pass
	// are queued for persistence even when the pass fails.
	//
	// Parameters:
	//   - ctx: cancellation for the bake pass
	//   - deltaTime: elapsed time in seconds since the previous tick
	//
	// Returns:
	//   - rootmotion.BakeReport: the pass report, empty when nothing was pending
	//   - error: the bake driver's error
	Tick(ctx context.Context, deltaTime float32) (rootmotion.BakeReport, error)

	// Run ticks at the configured rate until ctx is done, Quit is called, a bake pass
	// fails, or (with WithStopWhenBaked) no baking remains pending. Queued persistence
	// has finished when Run returns.
	//
	// Parameters:
	//   - ctx: the run context
	//
	// Returns:
	//   - error: the context's error, the failing pass's error, or ErrAlreadyRunning
	Run(ctx context.Context) error

	// Flush blocks until every queued persistence task has finished.
	//
	// Returns:
	//   - int: the number of persistence failures since the engine was created
	Flush() int

	// Quit signals Run to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Close quits, flushes, and stops the persistence workers.
	Close()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine around a bake driver.
//
// Parameters:
//   - driver: the bake driver run each tick
//   - options: functional options for engine configuration (tick rate, curve store, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(driver rootmotion.Driver, options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.RWMutex{},
		driver:          driver,
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		logger:          logging.NewNop(),
		engineTickRate:  time.Second / 60,
		scenes:          make(map[int]scene.Scene),
		persistWorkers:  DefaultPersistWorkers,
	}

	for _, opt := range options {
		opt(e)
	}

	e.profiler = profiler.NewProfiler(e.logger, profiler.DefaultInterval)
	if e.store != nil && e.curves == nil {
		e.logger.Warn("curve store configured without a curve asset store, persistence disabled")
		e.store = nil
	}
	if e.store != nil {
		e.persistPool = worker.NewDynamicWorkerPool(e.persistWorkers, 256, 1*time.Second)
	}

	return e
}

func (e *engine) Driver() rootmotion.Driver {
	return e.driver
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.engineTickRate = newRate
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) Tick(ctx context.Context, deltaTime float32) (rootmotion.BakeReport, error) {
	active := e.activeScenes()

	var report rootmotion.BakeReport
	if e.driver.NeedsBaking().Pending() {
		var owners []rootmotion.Owner
		for _, s := range active {
			owners = append(owners, s.Owners()...)
		}

		var err error
		report, err = e.driver.Bake(ctx, owners)
		e.persist(ctx, report)
		if err != nil {
			return report, err
		}
	}

	for _, s := range active {
		s.Advance(deltaTime)
	}

	e.mu.RLock()
	callback := e.tickCallback
	profiling := e.profilingEnabled
	e.mu.RUnlock()

	if callback != nil {
		callback(deltaTime)
	}
	if profiling {
		e.profiler.Tick()
	}
	return report, nil
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)
	defer e.Flush()

	e.mu.RLock()
	rate := e.engineTickRate
	e.mu.RUnlock()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quitChannel:
			return nil
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			report, err := e.Tick(ctx, dt)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Error("bake pass failed", "error", err)
				return err
			}
			if len(report.Baked) > 0 || len(report.Skipped) > 0 {
				e.logger.Debug("bake pass", "baked", len(report.Baked), "skipped", len(report.Skipped), "samples", report.Samples)
			}
			if e.stopWhenBaked && !e.driver.NeedsBaking().Pending() {
				e.logger.Info("baking complete, stopping")
				return nil
			}
		}
	}
}

// persist queues the curves of a pass and the manifests of the graphs the pass modified.
// Curves without a stable path cannot be reloaded by path and are left out.
func (e *engine) persist(ctx context.Context, report rootmotion.BakeReport) {
	if e.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	for _, b := range report.Baked {
		if b.Path == "" {
			e.logger.Warn("baked curve has no stable path, not persisted", "owner", b.Owner, "node", b.Node, "curve", b.Curve.String())
			continue
		}
		handle := b.Curve
		e.submit(b.Path, func() error {
			_, err := curve_store.Persist(ctx, e.store, e.curves, handle)
			return err
		})
	}

	if e.graphs == nil {
		return
	}
	for _, gh := range e.graphs.DrainModified() {
		graph, ok := e.graphs.Get(gh)
		if !ok || graph == nil || graph.Name() == "" {
			continue
		}
		m, err := rootmotion.SerializeGraph(graph, e.curves)
		if err != nil {
			e.persistErrors.Add(1)
			e.logger.Error("graph manifest not serialized", "graph", graph.Name(), "error", err)
			continue
		}
		e.submit("manifest/"+m.Graph, func() error {
			return e.store.SaveManifest(ctx, m)
		})
	}
}

// submit runs fn on the persistence pool, tracked by persistWG.
func (e *engine) submit(key string, fn func() error) {
	e.persistWG.Add(1)
	e.persistPool.SubmitTask(worker.Task{
		ID: int(e.persistSeq.Add(1)),
		Do: func() (any, error) {
			defer e.persistWG.Done()
			if err := fn(); err != nil {
				e.persistErrors.Add(1)
				e.logger.Error("persist failed", "key", key, "backend", e.store.Backend().String(), "error", err)
				return nil, err
			}
			e.logger.Debug("persisted", "key", key)
			return nil, nil
		},
	})
}

func (e *engine) Flush() int {
	e.persistWG.Wait()
	return int(e.persistErrors.Load())
}

// Quit signals Run to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	e.closeOnce.Do(func() {
		e.Quit()
		e.Flush()
		if e.persistPool != nil {
			e.persistPool.Stop()
		}
	})
}
