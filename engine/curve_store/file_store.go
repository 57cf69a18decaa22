package curve_store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"gopkg.in/yaml.v3"
)

const (
	curvesDir    = "curves"
	manifestsDir = "manifests"
	fileExt      = ".yaml"
	tmpPrefix    = "tmp-"
)

// fileStore writes one YAML document per curve and per manifest below a base directory.
// Curve paths map onto nested directories.
type fileStore struct {
	mu       *sync.Mutex
	basePath string
}

var _ CurveStore = &fileStore{}

func newFileStore(basePath string) (*fileStore, error) {
	for _, sub := range []string{curvesDir, manifestsDir} {
		if err := os.MkdirAll(filepath.Join(basePath, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure curve store directory: %w", err)
		}
	}
	return &fileStore{mu: &sync.Mutex{}, basePath: basePath}, nil
}

func (s *fileStore) filePath(kind, key string) string {
	return filepath.Join(s.basePath, kind, filepath.FromSlash(key)+fileExt)
}

func (s *fileStore) SaveCurve(_ context.Context, path string, rec model.CurveRecord) error {
	if err := validKey(path); err != nil {
		return err
	}
	return s.write(s.filePath(curvesDir, path), rec)
}

func (s *fileStore) LoadCurve(_ context.Context, path string) (model.CurveRecord, error) {
	var rec model.CurveRecord
	if err := validKey(path); err != nil {
		return rec, err
	}
	if err := s.read(s.filePath(curvesDir, path), &rec); err != nil {
		return model.CurveRecord{}, fmt.Errorf("curve %q: %w", path, err)
	}
	return rec, nil
}

func (s *fileStore) ListCurves(context.Context) ([]string, error) {
	return s.list(curvesDir)
}

func (s *fileStore) DeleteCurve(_ context.Context, path string) error {
	if err := validKey(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.filePath(curvesDir, path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove curve file: %w", err)
	}
	return nil
}

func (s *fileStore) SaveManifest(_ context.Context, m rootmotion.GraphManifest) error {
	if err := validKey(m.Graph); err != nil {
		return err
	}
	return s.write(s.filePath(manifestsDir, m.Graph), m)
}

func (s *fileStore) LoadManifest(_ context.Context, graph string) (rootmotion.GraphManifest, error) {
	var m rootmotion.GraphManifest
	if err := validKey(graph); err != nil {
		return m, err
	}
	if err := s.read(s.filePath(manifestsDir, graph), &m); err != nil {
		return rootmotion.GraphManifest{}, fmt.Errorf("manifest %q: %w", graph, err)
	}
	return m, nil
}

func (s *fileStore) ListManifests(context.Context) ([]string, error) {
	return s.list(manifestsDir)
}

func (s *fileStore) Backend() BackendType {
	return BackendTypeFile
}

func (s *fileStore) Close() error {
	return nil
}

// write marshals v to YAML and replaces dest atomically through a synced temp file.
func (s *fileStore) write(dest string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure record directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*"+fileExt)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing record: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *fileStore) read(src string, v any) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read record: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}

func (s *fileStore) list(kind string) ([]string, error) {
	root := filepath.Join(s.basePath, kind)
	var keys []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExt) || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		keys = append(keys, strings.TrimSuffix(filepath.ToSlash(rel), fileExt))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	slices.Sort(keys)
	return keys, nil
}
