package curve_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	backend "github.com/redis/go-redis/v9"
)

// redisStore keeps JSON records under prefixed keys, with one sorted-set index per record kind.
type redisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ CurveStore = &redisStore{}

func newRedisStore(cfg *curveStoreConfig) *redisStore {
	client := cfg.redisClient
	if client == nil {
		client = backend.NewClient(&backend.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
	}
	return &redisStore{client: client, prefix: cfg.prefix, ttl: cfg.ttl}
}

func (s *redisStore) key(kind, k string) string {
	return s.prefix + kind + ":" + k
}

func (s *redisStore) indexKey(kind string) string {
	return s.prefix + kind + "s"
}

func (s *redisStore) SaveCurve(ctx context.Context, path string, rec model.CurveRecord) error {
	if err := validKey(path); err != nil {
		return err
	}
	return s.save(ctx, "curve", path, rec)
}

func (s *redisStore) LoadCurve(ctx context.Context, path string) (model.CurveRecord, error) {
	var rec model.CurveRecord
	if err := validKey(path); err != nil {
		return rec, err
	}
	if err := s.load(ctx, "curve", path, &rec); err != nil {
		return model.CurveRecord{}, fmt.Errorf("curve %q: %w", path, err)
	}
	return rec, nil
}

func (s *redisStore) ListCurves(ctx context.Context) ([]string, error) {
	return s.list(ctx, "curve")
}

func (s *redisStore) DeleteCurve(ctx context.Context, path string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key("curve", path))
	pipe.ZRem(ctx, s.indexKey("curve"), path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete curve from redis: %w", err)
	}
	return nil
}

func (s *redisStore) SaveManifest(ctx context.Context, m rootmotion.GraphManifest) error {
	if err := validKey(m.Graph); err != nil {
		return err
	}
	return s.save(ctx, "manifest", m.Graph, m)
}

func (s *redisStore) LoadManifest(ctx context.Context, graph string) (rootmotion.GraphManifest, error) {
	var m rootmotion.GraphManifest
	if err := s.load(ctx, "manifest", graph, &m); err != nil {
		return rootmotion.GraphManifest{}, fmt.Errorf("manifest %q: %w", graph, err)
	}
	return m, nil
}

func (s *redisStore) ListManifests(ctx context.Context) ([]string, error) {
	return s.list(ctx, "manifest")
}

func (s *redisStore) Backend() BackendType {
	return BackendTypeRedis
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) save(ctx context.Context, kind, k string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(kind, k), data, s.ttl)
	// equal scores keep the index in lexicographic order
	pipe.ZAdd(ctx, s.indexKey(kind), backend.Z{Score: 0, Member: k})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", kind, err)
	}
	return nil
}

func (s *redisStore) load(ctx context.Context, kind, k string, v any) error {
	val, err := s.client.Get(ctx, s.key(kind, k)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s from redis: %w", kind, err)
	}
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}
	return nil
}

// list returns indexed keys whose records still exist, pruning entries whose records expired.
func (s *redisStore) list(ctx context.Context, kind string) ([]string, error) {
	keys, err := s.client.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	if len(keys) == 0 || s.ttl == 0 {
		return keys, nil
	}

	out := keys[:0]
	for _, k := range keys {
		n, err := s.client.Exists(ctx, s.key(kind, k)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", kind, err)
		}
		if n == 0 {
			s.client.ZRem(ctx, s.indexKey(kind), k)
			continue
		}
		out = append(out, k)
	}
	return out, nil
}
