// Package kvs stores login state and linked accounts in memory, in LevelDB
// or in Redis behind one interface.
package kvs

import (
	"context"
	"errors"
	"time"
)

// Store is a key-value store with per-key expiry. Implementations are safe
// for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound if it is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero or less never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Take returns the value for key and removes it in one step, so at most
	// one caller observes a given value. Returns ErrNotFound like Get.
	Take(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the live keys starting with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources. Later calls return ErrClosed.
	Close() error
}

var (
	// ErrNotFound is returned when a key is missing or has expired.
	ErrNotFound = errors.New("kvs: key not found")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("kvs: store is closed")
)

// Config selects and configures a store backend.
type Config struct {
	// Type is "memory" (default), "leveldb" or "redis".
	Type string `yaml:"type" json:"type"`

	// Namespace isolates keys of different users of one backend. It is
	// applied as a key prefix; LevelDB also gets its own directory.
	Namespace string `yaml:"namespace" json:"namespace"`

	Memory  MemoryConfig  `yaml:"memory" json:"memory"`
	LevelDB LevelDBConfig `yaml:"leveldb" json:"leveldb"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	// CleanupInterval is how often expired keys are purged (default 5m).
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// LevelDBConfig configures the LevelDB store.
type LevelDBConfig struct {
	// Path is the database directory. Defaults to a directory under the
	// user cache dir.
	Path string `yaml:"path" json:"path"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `yaml:"sync_writes" json:"sync_writes"`

	// CleanupInterval is how often expired keys are purged (default 5m).
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"` // 0 uses the client default
}

const defaultCleanupInterval = 5 * time.Minute

// New creates the store selected by cfg.Type.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(cfg.Namespace, cfg.Memory), nil
	case "leveldb":
		return NewLevelDBStore(cfg.Namespace, cfg.LevelDB)
	case "redis":
		return NewRedisStore(cfg.Namespace, cfg.Redis)
	default:
		return nil, errors.New("kvs: unsupported store type: " + cfg.Type)
	}
}

// WithNamespace returns a copy of cfg whose namespace is extended by name.
func WithNamespace(cfg Config, name string) Config {
	if cfg.Namespace == "" {
		cfg.Namespace = name
	} else {
		cfg.Namespace = cfg.Namespace + ":" + name
	}
	return cfg
}
