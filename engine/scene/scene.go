package scene

import (
	"cmp"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/animator"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
)

// Scene defines a named registry of GameObjects. The engine bakes the owners of
// every active scene and advances their animators each tick.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// SetName sets the scene name.
	SetName(name string)

	// Active returns whether the scene takes part in engine ticks.
	Active() bool

	// SetActive sets whether the scene takes part in engine ticks.
	SetActive(active bool)

	// Count returns the number of registered objects.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Add registers an object, assigning it an ID if it has none.
	//
	// Parameters:
	//   - obj: the object to register
	//
	// Returns:
	//   - uint64: the object's ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a registered object by ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove unregisters an object. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object ID
	Remove(id uint64)

	// Clear unregisters every object.
	Clear()

	// Objects returns every registered object in ascending ID order.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	Objects() []game_object.GameObject

	// Owners returns the bake owners of every enabled object in ascending ID order.
	//
	// Returns:
	//   - []rootmotion.Owner: the owners
	Owners() []rootmotion.Owner

	// Advance steps the playing animator of every enabled object by deltaTime and writes
	// the resulting pose into the object's hierarchy. Animators run in parallel on the
	// scene's worker pool; Advance returns once all of them are done.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Advance(deltaTime float32)

	// Close stops the scene's worker pool.
	Close()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	registry map[uint64]game_object.GameObject
	nextID   uint64

	logger *slog.Logger

	// computePool runs animator updates during Advance. Workers persist across ticks.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	closeOnce      sync.Once
}

var _ Scene = &scene{}

// NewScene creates a new, inactive Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		registry:       make(map[uint64]game_object.GameObject),
		nextID:         1,
		logger:         logging.NewNop(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// created after options so WithComputeWorkers can override the default
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add assumes the write lock is held.
func (s *scene) add(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
		s.nextID++
	} else if obj.ID() >= s.nextID {
		s.nextID = obj.ID() + 1
	}
	s.registry[obj.ID()] = obj
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, id)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs := make([]game_object.GameObject, 0, len(s.registry))
	for _, obj := range s.registry {
		objs = append(objs, obj)
	}
	slices.SortFunc(objs, func(a, b game_object.GameObject) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return objs
}

func (s *scene) Owners() []rootmotion.Owner {
	var owners []rootmotion.Owner
	for _, obj := range s.Objects() {
		if obj.Enabled() {
			owners = append(owners, obj.Owner())
		}
	}
	return owners
}

func (s *scene) Advance(deltaTime float32) {
	// a WaitGroup gives a per-tick barrier; pool.Wait only returns once workers go idle
	var wg sync.WaitGroup
	taskID := 0
	for _, obj := range s.Objects() {
		anim := obj.Animator()
		if !obj.Enabled() || anim == nil || !anim.Playing() {
			continue
		}

		wg.Add(1)
		objCap := obj
		id := taskID
		taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				anim.Advance(deltaTime)

				h := objCap.Hierarchy()
				if h == nil {
					return nil, nil
				}
				release := h.Acquire()
				defer release()
				if err := anim.ApplyPose(h); err != nil && !errors.Is(err, animator.ErrNoPose) {
					s.logger.Warn("pose not applied", "scene", s.Name(), "object", objCap.ID(), "error", err)
					return nil, err
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Close() {
	s.closeOnce.Do(s.computePool.Stop)
}
