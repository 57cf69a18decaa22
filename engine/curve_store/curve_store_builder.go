package curve_store

import (
	"time"

	backend "github.com/redis/go-redis/v9"
)

const (
	// DefaultDir is the base directory of the file backend.
	DefaultDir = ".oxy/rootmotion"

	// DefaultRedisPrefix is the key prefix of the redis backend.
	DefaultRedisPrefix = "oxy:rootmotion:"
)

type curveStoreConfig struct {
	backend BackendType
	dir     string

	redisAddr     string
	redisPassword string
	redisDB       int
	redisClient   *backend.Client
	prefix        string
	ttl           time.Duration
}

// CurveStoreBuilderOption is a functional option for configuring a CurveStore during construction.
type CurveStoreBuilderOption func(*curveStoreConfig)

// WithBackend selects the persistence backend.
//
// Parameters:
//   - b: the backend type
//
// Returns:
//   - CurveStoreBuilderOption: functional option to set the backend
func WithBackend(b BackendType) CurveStoreBuilderOption {
	return func(c *curveStoreConfig) {
		c.backend = b
	}
}

// WithDir sets the base directory of the file backend.
//
// Parameters:
//   - dir: the directory, created on first use
//
// Returns:
//   - CurveStoreBuilderOption: functional option to set the directory
func WithDir(dir string) CurveStoreBuilderOption {
	return func(c *curveStoreConfig) {
		if dir != "" {
			c.dir = dir
		}
	}
}

// WithRedisAddr sets the redis connection used by the redis backend.
//
// Parameters:
//   - addr: host:port of the server
//   - password: the password, may be empty
//   - db: the database number
//
// Returns:
//   - CurveStoreBuilderOption: functional option to set the connection
func WithRedisAddr(addr, password string, db int) CurveStoreBuilderOption {
	return func(c *curveStoreConfig) {
		c.redisAddr = addr
		c.redisPassword = password
		c.redisDB = db
	}
}

// WithRedisClient makes the redis backend use an existing client instead of dialing.
//
// Parameters:
//   - client: the client
//
// Returns:
//   - CurveStoreBuilderOption: functional option to set the client
func WithRedisClient(client *backend.Client) CurveStoreBuilderOption {
	return func(c *curveStoreConfig) {
		c.redisClient = client
	}
}

// WithPrefix sets the redis key prefix.
//
// Parameters:
//   - prefix: the prefix
//
// Returns:
//   - CurveStoreBuilderOption: functional option to set the prefix
func WithPrefix(prefix string) CurveStoreBuilderOption {
	return func(c *curveStoreConfig) {
		c.prefix = prefix
	}
}

// WithTTL sets an expiration on redis records. Zero keeps records forever.
//
// Parameters:
//   - ttl: the expiration
//
// Returns:
//   - CurveStoreBuilderOption: functional option to set the TTL
func WithTTL(ttl time.Duration) CurveStoreBuilderOption {
	return func(c *curveStoreConfig) {
		c.ttl = ttl
	}
}
