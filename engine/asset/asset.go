package asset

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrPathInUse is returned by AddWithPath when another asset already owns the path.
	ErrPathInUse = errors.New("asset path already in use")

	// ErrEmptyPath is returned by AddWithPath when the path is empty.
	ErrEmptyPath = errors.New("asset path is empty")
)

// ID is the raw numeric identity of an asset within one store instance.
// IDs are assigned in insertion order and are not stable across store rebuilds; use paths
// for anything that must survive a reload.
type ID uint64

// Handle is a typed reference to an asset of type T. The zero Handle refers to nothing.
type Handle[T any] struct {
	id ID
}

// HandleFromID builds a handle from a raw id, e.g. one read back from a serialized record.
// The handle is only meaningful against the store that issued the id.
//
// Parameters:
//   - id: the raw asset id
//
// Returns:
//   - Handle[T]: a handle wrapping id
func HandleFromID[T any](id ID) Handle[T] {
	return Handle[T]{id: id}
}

// ID returns the raw id behind the handle.
func (h Handle[T]) ID() ID {
	return h.id
}

// IsZero reports whether the handle refers to nothing.
func (h Handle[T]) IsZero() bool {
	return h.id == 0
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("asset#%d", h.id)
}

// assets is the implementation of the Assets interface.
type assets[T any] struct {
	mu *sync.RWMutex

	nextID   ID
	entries  map[ID]T
	paths    map[ID]string
	byPath   map[string]ID
	modified map[ID]struct{}
}

// Assets is a typed asset collection. Values are shared by handle and never duplicated.
// An asset may optionally be registered under a stable path, which survives store rebuilds
// where raw ids do not. Thread-safe for concurrent access.
type Assets[T any] interface {
	// Add stores value and returns a new handle for it.
	//
	// Parameters:
	//   - value: the asset to store
	//
	// Returns:
	//   - Handle[T]: the handle of the stored asset
	Add(value T) Handle[T]

	// AddWithPath stores value under a stable path.
	//
	// Parameters:
	//   - path: the stable path (must be non-empty and unused)
	//   - value: the asset to store
	//
	// Returns:
	//   - Handle[T]: the handle of the stored asset
	//   - error: ErrEmptyPath or ErrPathInUse
	AddWithPath(path string, value T) (Handle[T], error)

	// Get returns the asset for a handle.
	//
	// Parameters:
	//   - h: the handle to resolve
	//
	// Returns:
	//   - T: the asset, or the zero value
	//   - bool: true if the handle resolved
	Get(h Handle[T]) (T, bool)

	// GetMut returns the asset for a handle and records it as modified.
	// Modified handles are reported once by DrainModified.
	//
	// Parameters:
	//   - h: the handle to resolve
	//
	// Returns:
	//   - T: the asset, or the zero value
	//   - bool: true if the handle resolved
	GetMut(h Handle[T]) (T, bool)

	// Path returns the stable path tracked for a handle, if any.
	//
	// Parameters:
	//   - h: the handle to look up
	//
	// Returns:
	//   - string: the tracked path
	//   - bool: true if the asset exists and has a path
	Path(h Handle[T]) (string, bool)

	// ByPath resolves a stable path to a handle.
	//
	// Parameters:
	//   - path: the stable path
	//
	// Returns:
	//   - Handle[T]: the handle registered at path
	//   - bool: true if the path is known
	ByPath(path string) (Handle[T], bool)

	// Contains reports whether the handle resolves in this store.
	Contains(h Handle[T]) bool

	// Remove deletes an asset and its path registration. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the handle to remove
	Remove(h Handle[T])

	// Len returns the number of stored assets.
	Len() int

	// Handles returns all live handles in ascending id order.
	//
	// Returns:
	//   - []Handle[T]: the handles
	Handles() []Handle[T]

	// DrainModified returns handles passed to GetMut since the last drain, in ascending id order,
	// and clears the modified set.
	//
	// Returns:
	//   - []Handle[T]: the modified handles that are still live
	DrainModified() []Handle[T]
}

var _ Assets[int] = &assets[int]{}

// NewAssets creates an empty asset store.
//
// Parameters:
//   - options: functional options to configure the store
//
// Returns:
//   - Assets[T]: the new store
func NewAssets[T any](options ...AssetsBuilderOption[T]) Assets[T] {
	a := &assets[T]{
		mu:       &sync.RWMutex{},
		nextID:   1,
		entries:  make(map[ID]T),
		paths:    make(map[ID]string),
		byPath:   make(map[string]ID),
		modified: make(map[ID]struct{}),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *assets[T]) Add(value T) Handle[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.insert(value)
}

func (a *assets[T]) AddWithPath(path string, value T) (Handle[T], error) {
	if path == "" {
		return Handle[T]{}, ErrEmptyPath
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, taken := a.byPath[path]; taken {
		return Handle[T]{}, fmt.Errorf("%q: %w", path, ErrPathInUse)
	}
	h := a.insert(value)
	a.paths[h.id] = path
	a.byPath[path] = h.id
	return h, nil
}

// insert assumes the write lock is held.
func (a *assets[T]) insert(value T) Handle[T] {
	id := a.nextID
	a.nextID++
	a.entries[id] = value
	return Handle[T]{id: id}
}

func (a *assets[T]) Get(h Handle[T]) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.entries[h.id]
	return v, ok
}

func (a *assets[T]) GetMut(h Handle[T]) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.entries[h.id]
	if ok {
		a.modified[h.id] = struct{}{}
	}
	return v, ok
}

func (a *assets[T]) Path(h Handle[T]) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.paths[h.id]
	return p, ok
}

func (a *assets[T]) ByPath(path string) (Handle[T], bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.byPath[path]
	if !ok {
		return Handle[T]{}, false
	}
	return Handle[T]{id: id}, true
}

func (a *assets[T]) Contains(h Handle[T]) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.entries[h.id]
	return ok
}

func (a *assets[T]) Remove(h Handle[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.paths[h.id]; ok {
		delete(a.byPath, p)
		delete(a.paths, h.id)
	}
	delete(a.entries, h.id)
	delete(a.modified, h.id)
}

func (a *assets[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

func (a *assets[T]) Handles() []Handle[T] {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedHandles[T](a.entries)
}

func (a *assets[T]) DrainModified() []Handle[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := sortedHandles[T](a.modified)
	a.modified = make(map[ID]struct{})
	return out
}

func sortedHandles[T any, V any](m map[ID]V) []Handle[T] {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Handle[T], len(ids))
	for i, id := range ids {
		out[i] = Handle[T]{id: id}
	}
	return out
}
