package curve_store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
)

var (
	// ErrNotFound is returned when a curve or manifest does not exist in the store.
	ErrNotFound = errors.New("not found in curve store")

	// ErrInvalidKey is returned for empty, absolute, or non-canonical curve paths and graph names.
	ErrInvalidKey = errors.New("invalid curve store key")

	// ErrNoPath is returned by Persist for curves stored without a stable path.
	ErrNoPath = errors.New("curve has no stable path")
)

// BackendType identifies the persistence backend of a CurveStore.
type BackendType int

const (
	// BackendTypeMemory keeps records in process memory.
	BackendTypeMemory BackendType = iota

	// BackendTypeFile writes YAML files below a base directory.
	BackendTypeFile

	// BackendTypeRedis stores JSON values in redis.
	BackendTypeRedis
)

func (b BackendType) String() string {
	switch b {
	case BackendTypeMemory:
		return "memory"
	case BackendTypeFile:
		return "file"
	case BackendTypeRedis:
		return "redis"
	default:
		return fmt.Sprintf("BackendType(%d)", int(b))
	}
}

// ParseBackendType maps a backend name to its BackendType.
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "memory":
		return BackendTypeMemory, nil
	case "file":
		return BackendTypeFile, nil
	case "redis":
		return BackendTypeRedis, nil
	default:
		return BackendTypeMemory, fmt.Errorf("unknown curve store backend %q", s)
	}
}

// CurveStore persists baked curve content by stable path, plus the root motion manifest
// of each animation graph. Implementations are safe for concurrent use.
type CurveStore interface {
	// SaveCurve writes a curve record, replacing any existing record at path.
	//
	// Parameters:
	//   - ctx: the request context
	//   - path: the curve's stable asset path
	//   - rec: the curve content
	//
	// Returns:
	//   - error: ErrInvalidKey or a backend error
	SaveCurve(ctx context.Context, path string, rec model.CurveRecord) error

	// LoadCurve reads a curve record.
	//
	// Parameters:
	//   - ctx: the request context
	//   - path: the curve's stable asset path
	//
	// Returns:
	//   - model.CurveRecord: the curve content
	//   - error: ErrNotFound, ErrInvalidKey or a backend error
	LoadCurve(ctx context.Context, path string) (model.CurveRecord, error)

	// ListCurves returns every stored curve path in ascending order.
	ListCurves(ctx context.Context) ([]string, error)

	// DeleteCurve removes a curve record. Deleting a missing record is not an error.
	DeleteCurve(ctx context.Context, path string) error

	// SaveManifest writes a graph manifest keyed by its graph name.
	//
	// Parameters:
	//   - ctx: the request context
	//   - m: the manifest, m.Graph must be a valid key
	//
	// Returns:
	//   - error: ErrInvalidKey or a backend error
	SaveManifest(ctx context.Context, m rootmotion.GraphManifest) error

	// LoadManifest reads the manifest of a graph.
	//
	// Parameters:
	//   - ctx: the request context
	//   - graph: the graph name
	//
	// Returns:
	//   - rootmotion.GraphManifest: the manifest
	//   - error: ErrNotFound, ErrInvalidKey or a backend error
	LoadManifest(ctx context.Context, graph string) (rootmotion.GraphManifest, error)

	// ListManifests returns every stored graph name in ascending order.
	ListManifests(ctx context.Context) ([]string, error)

	// Backend returns the backend type of the store.
	Backend() BackendType

	// Close releases backend resources.
	Close() error
}

// NewCurveStore creates a curve store for the configured backend.
//
// Parameters:
//   - options: functional options, WithBackend selects the backend (memory by default)
//
// Returns:
//   - CurveStore: the store
//   - error: if the backend cannot be initialized
func NewCurveStore(options ...CurveStoreBuilderOption) (CurveStore, error) {
	cfg := &curveStoreConfig{
		backend: BackendTypeMemory,
		dir:     DefaultDir,
		prefix:  DefaultRedisPrefix,
	}
	for _, opt := range options {
		opt(cfg)
	}

	switch cfg.backend {
	case BackendTypeMemory:
		return newMemoryStore(), nil
	case BackendTypeFile:
		return newFileStore(cfg.dir)
	case BackendTypeRedis:
		return newRedisStore(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported curve store backend %s", cfg.backend)
	}
}

// validKey reports whether k is a clean, relative, slash-separated key.
func validKey(k string) error {
	if k == "" || strings.HasPrefix(k, "/") || path.Clean(k) != k || strings.Contains(k, "\\") {
		return fmt.Errorf("%q: %w", k, ErrInvalidKey)
	}
	for _, seg := range strings.Split(k, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%q: %w", k, ErrInvalidKey)
		}
	}
	return nil
}

// Persist saves the curve behind h under its stable path.
//
// Parameters:
//   - ctx: the request context
//   - store: the destination
//   - curves: the asset store holding h
//   - h: the curve handle
//
// Returns:
//   - string: the path written
//   - error: ErrNoPath, rootmotion.ErrAssetResolution or a backend error
func Persist(ctx context.Context, store CurveStore, curves asset.Assets[*model.RootMotionCurve], h asset.Handle[*model.RootMotionCurve]) (string, error) {
	p, ok := curves.Path(h)
	if !ok {
		return "", fmt.Errorf("%s: %w", h, ErrNoPath)
	}
	curve, ok := curves.Get(h)
	if !ok {
		id := h.ID()
		return "", &rootmotion.AssetResolutionError{Path: p, ID: &id}
	}
	if err := store.SaveCurve(ctx, p, curve.Record()); err != nil {
		return "", err
	}
	return p, nil
}

// Restore loads every persisted curve into an asset store under its stable path.
// Paths already present in curves are left untouched.
//
// Parameters:
//   - ctx: the request context
//   - store: the source
//   - curves: the asset store to fill
//
// Returns:
//   - int: the number of curves added
//   - error: the first failure; curves added before it stay added
func Restore(ctx context.Context, store CurveStore, curves asset.Assets[*model.RootMotionCurve]) (int, error) {
	paths, err := store.ListCurves(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, p := range paths {
		if _, ok := curves.ByPath(p); ok {
			continue
		}
		rec, err := store.LoadCurve(ctx, p)
		if err != nil {
			return added, fmt.Errorf("load curve %q: %w", p, err)
		}
		curve, err := model.CurveFromRecord(rec)
		if err != nil {
			return added, fmt.Errorf("curve %q: %w", p, err)
		}
		if _, err := curves.AddWithPath(p, curve); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func cloneRecord(rec model.CurveRecord) model.CurveRecord {
	return model.CurveRecord{
		Interpolation: rec.Interpolation,
		Timestamps:    append([]float32(nil), rec.Timestamps...),
		Positions:     append([][3]float32(nil), rec.Positions...),
	}
}
