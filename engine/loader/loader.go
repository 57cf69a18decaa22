package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// ErrUnsupportedFormat is returned when no backend accepts a file extension.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger *slog.Logger

	modelCache map[string]*model.ImportedModel

	backend loaderBackend
}

// Loader defines the public-facing interface for importing and caching skeletons and animation clips.
// It abstracts the file format (glTF, GLB, etc.) behind a backend and keeps every imported model
// keyed by the path or name it was loaded under.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *model.ImportedModel: the loaded and cached model
	//   - error: ErrUnsupportedFormat for unknown extensions, or the import error
	Load(path string) (*model.ImportedModel, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *model.ImportedModel: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *model.ImportedModel: the cached model or nil
	Get(name string) *model.ImportedModel

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]*model.ImportedModel: all cached models keyed by name
	Models() map[string]*model.ImportedModel
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		logger:     logging.NewNop(),
		modelCache: make(map[string]*model.ImportedModel),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*model.ImportedModel, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return l.store(path, imported), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	if l.backend == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrUnsupportedFormat)
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	return l.store(name, imported), nil
}

func (l *loader) Get(name string) *model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.modelCache)
}

// store caches imported under key unless a concurrent load got there first.
func (l *loader) store(key string, imported *model.ImportedModel) *model.ImportedModel {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[key]; ok {
		return cached
	}
	l.modelCache[key] = imported

	bones := 0
	if imported.Skeleton != nil {
		bones = len(imported.Skeleton.Bones)
	}
	l.logger.Debug("model imported", "key", key, "name", imported.Name, "bones", bones, "clips", len(imported.Animations))
	return imported
}

// resolveBackend selects the loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l.backend == nil || !slices.Contains(l.backend.Extensions(), ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return l.backend, nil
}

// AddClips registers every clip of an imported model with a clip store under
// "<model name>/<clip name>". Clips already registered under that path keep their handle.
//
// Parameters:
//   - imported: the model whose animations to register
//   - clips: the clip store
//
// Returns:
//   - map[string]asset.Handle[*model.AnimationClip]: handles keyed by clip name
func AddClips(imported *model.ImportedModel, clips asset.Assets[*model.AnimationClip]) map[string]asset.Handle[*model.AnimationClip] {
	out := make(map[string]asset.Handle[*model.AnimationClip], len(imported.Animations))
	for _, clip := range imported.Animations {
		path := imported.Name + "/" + clip.Name
		if h, ok := clips.ByPath(path); ok {
			out[clip.Name] = h
			continue
		}
		h, err := clips.AddWithPath(path, clip)
		if err != nil {
			// the path was taken concurrently; keep the clip reachable by id
			h = clips.Add(clip)
		}
		out[clip.Name] = h
	}
	return out
}
