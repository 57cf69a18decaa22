package curve_store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
)

type memoryStore struct {
	mu        *sync.RWMutex
	curves    map[string]model.CurveRecord
	manifests map[string]rootmotion.GraphManifest
}

var _ CurveStore = &memoryStore{}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		mu:        &sync.RWMutex{},
		curves:    make(map[string]model.CurveRecord),
		manifests: make(map[string]rootmotion.GraphManifest),
	}
}

func (s *memoryStore) SaveCurve(_ context.Context, path string, rec model.CurveRecord) error {
	if err := validKey(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves[path] = cloneRecord(rec)
	return nil
}

func (s *memoryStore) LoadCurve(_ context.Context, path string) (model.CurveRecord, error) {
	if err := validKey(path); err != nil {
		return model.CurveRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.curves[path]
	if !ok {
		return model.CurveRecord{}, fmt.Errorf("curve %q: %w", path, ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (s *memoryStore) ListCurves(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return common.SortedKeys(s.curves), nil
}

func (s *memoryStore) DeleteCurve(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.curves, path)
	return nil
}

func (s *memoryStore) SaveManifest(_ context.Context, m rootmotion.GraphManifest) error {
	if err := validKey(m.Graph); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Nodes = append([]rootmotion.SerializedNode(nil), m.Nodes...)
	s.manifests[m.Graph] = m
	return nil
}

func (s *memoryStore) LoadManifest(_ context.Context, graph string) (rootmotion.GraphManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[graph]
	if !ok {
		return rootmotion.GraphManifest{}, fmt.Errorf("manifest %q: %w", graph, ErrNotFound)
	}
	m.Nodes = append([]rootmotion.SerializedNode(nil), m.Nodes...)
	return m, nil
}

func (s *memoryStore) ListManifests(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return common.SortedKeys(s.manifests), nil
}

func (s *memoryStore) Backend() BackendType {
	return BackendTypeMemory
}

func (s *memoryStore) Close() error {
	return nil
}
