package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/curve_store"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/rootmotion"
	"github.com/Carmen-Shannon/oxy-rootmotion/internal/logging"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OXY_ROOTMOTION_"

// Config is the application configuration.
type Config struct {
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`

	Bake   BakeConfig   `yaml:"bake" envPrefix:"BAKE_"`
	Engine EngineConfig `yaml:"engine" envPrefix:"ENGINE_"`
	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
}

// BakeConfig configures the bake driver.
type BakeConfig struct {
	SampleRate         float32 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	MassMarkerPrefix   string  `yaml:"mass_marker_prefix" env:"MASS_MARKER_PREFIX"`
	UnnamedMassBearing bool    `yaml:"unnamed_mass_bearing" env:"UNNAMED_MASS_BEARING"`
	RootBoneName       string  `yaml:"root_bone_name" env:"ROOT_BONE_NAME"`
}

// EngineConfig configures the tick loop.
type EngineConfig struct {
	TickRate       float64 `yaml:"tick_rate" env:"TICK_RATE"`
	PersistWorkers int     `yaml:"persist_workers" env:"PERSIST_WORKERS"`
	Profiling      bool    `yaml:"profiling" env:"PROFILING"`
}

// StoreConfig configures the curve store.
type StoreConfig struct {
	Backend       string        `yaml:"backend" env:"BACKEND"`
	Dir           string        `yaml:"dir" env:"DIR"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	Prefix        string        `yaml:"prefix" env:"PREFIX"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
}

// Default returns the configuration used when no file or environment overrides apply.
func Default() Config {
	policy := rootmotion.DefaultMassPolicy()
	return Config{
		LogLevel: "info",
		Bake: BakeConfig{
			SampleRate:         rootmotion.DefaultSampleRate,
			MassMarkerPrefix:   policy.MarkerPrefix,
			UnnamedMassBearing: policy.UnnamedMassBearing,
		},
		Engine: EngineConfig{
			TickRate:       60,
			PersistWorkers: 4,
		},
		Store: StoreConfig{
			Backend: curve_store.BackendTypeFile.String(),
			Dir:     curve_store.DefaultDir,
			Prefix:  curve_store.DefaultRedisPrefix,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (skipped when
// path is empty), then OXY_ROOTMOTION_* environment variables, and validates the result.
//
// Parameters:
//   - path: the YAML file, or "" for none
//
// Returns:
//   - Config: the configuration
//   - error: if the file cannot be read or decoded, the environment cannot be parsed, or validation fails
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so misspelled settings are not silently ignored.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if !(c.Bake.SampleRate > 0) || math.IsInf(float64(c.Bake.SampleRate), 0) {
		errs = append(errs, fmt.Errorf("bake.sample_rate must be positive and finite, got %v", c.Bake.SampleRate))
	}
	if !(c.Engine.TickRate > 0) || math.IsInf(c.Engine.TickRate, 0) {
		errs = append(errs, fmt.Errorf("engine.tick_rate must be positive and finite, got %v", c.Engine.TickRate))
	}
	if c.Engine.PersistWorkers < 1 {
		errs = append(errs, fmt.Errorf("engine.persist_workers must be at least 1, got %d", c.Engine.PersistWorkers))
	}

	backend, err := curve_store.ParseBackendType(c.Store.Backend)
	if err != nil {
		errs = append(errs, err)
	}
	switch {
	case err != nil:
	case backend == curve_store.BackendTypeFile && c.Store.Dir == "":
		errs = append(errs, errors.New("store.dir is required for the file backend"))
	case backend == curve_store.BackendTypeRedis && c.Store.RedisAddr == "":
		errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, fmt.Errorf("store.ttl must not be negative, got %s", c.Store.TTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, info when it does not parse.
func (c Config) Level() slog.Level {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return lvl
}

// MassPolicy returns the center of gravity mass policy.
func (c Config) MassPolicy() rootmotion.MassPolicy {
	return rootmotion.MassPolicy{
		MarkerPrefix:       c.Bake.MassMarkerPrefix,
		UnnamedMassBearing: c.Bake.UnnamedMassBearing,
	}
}

// DriverOptions returns the bake driver options described by the configuration.
func (c Config) DriverOptions() []rootmotion.DriverBuilderOption {
	opts := []rootmotion.DriverBuilderOption{
		rootmotion.WithSampleRate(c.Bake.SampleRate),
		rootmotion.WithMassPolicy(c.MassPolicy()),
	}
	if c.Bake.RootBoneName != "" {
		opts = append(opts, rootmotion.WithRootBoneName(c.Bake.RootBoneName))
	}
	return opts
}

// StoreOptions returns the curve store options described by the configuration.
func (c Config) StoreOptions() ([]curve_store.CurveStoreBuilderOption, error) {
	backend, err := curve_store.ParseBackendType(c.Store.Backend)
	if err != nil {
		return nil, err
	}
	opts := []curve_store.CurveStoreBuilderOption{curve_store.WithBackend(backend)}
	switch backend {
	case curve_store.BackendTypeFile:
		opts = append(opts, curve_store.WithDir(c.Store.Dir))
	case curve_store.BackendTypeRedis:
		opts = append(opts,
			curve_store.WithRedisAddr(c.Store.RedisAddr, c.Store.RedisPassword, c.Store.RedisDB),
			curve_store.WithPrefix(c.Store.Prefix),
			curve_store.WithTTL(c.Store.TTL),
		)
	}
	return opts, nil
}
