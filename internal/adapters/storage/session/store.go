// Package session provides server-side session storage: a set of byte
// values per session id that expire together after a period of inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"flashbox/internal/adapters/http/perf"
	"flashbox/internal/adapters/storage"
)

// DefaultTTL is how long a session lives after its last write.
const DefaultTTL = 24 * time.Hour

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

var (
	// ErrEmptyID is returned when an operation is given no session id.
	ErrEmptyID = errors.New("session: id is required")
	// ErrInvalidID is returned for ids containing the key separator ':'.
	ErrInvalidID = errors.New("session: id must not contain ':'")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("session: unknown backend")
)

// Store persists session values.
// Every Set or Delete refreshes the session's expiry; values of an expired
// session read as absent until Sweep removes them.
type Store interface {
	Get(ctx context.Context, id, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, id, key string, value []byte) error
	Delete(ctx context.Context, id, key string) error
	// Destroy removes every value of the session.
	Destroy(ctx context.Context, id string) error
	// Sweep removes expired values and reports how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"` // SQLite file or Pebble directory
	TTL     time.Duration `yaml:"ttl"`
}

// New opens the backend named by cfg.Backend. An empty backend means memory.
// SQLite databases are migrated before use and wrapped in a TimedDB.
// PRE: cfg.Path is set for sqlite and pebble
// POST: Returns an open Store; the caller must Close it
func New(cfg Config, collector *perf.Collector, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.TTL), nil

	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = storage.MemoryPath
		}
		db, err := storage.Open(path)
		if err != nil {
			return nil, err
		}
		result, err := storage.Migrate(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("session_db_migrated",
			zap.String("path", path),
			zap.Uint("version", result.Version),
			zap.Bool("changed", result.Changed),
		)
		return NewSQLiteStore(storage.NewTimedDB(db, collector, logger), cfg.TTL), nil

	case BackendPebble:
		if cfg.Path == "" {
			return nil, fmt.Errorf("session: pebble backend requires a path")
		}
		return OpenPebbleStore(cfg.Path, cfg.TTL)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func checkID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if strings.ContainsRune(id, ':') {
		return ErrInvalidID
	}
	return nil
}
