package replay

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Backend names accepted in configuration.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Options selects and sizes a Store.
type Options struct {
	Backend    string
	RedisURL   string
	MaxEntries int
	MaxTTL     time.Duration
}

// Open builds the Store named by opts.Backend. It returns (nil, nil) for
// BackendNone or an empty backend. db is only used by BackendSQLite.
func Open(ctx context.Context, opts Options, db *sql.DB) (Store, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(opts.MaxEntries, opts.MaxTTL), nil
	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("replay backend %q requires redis_url", BackendRedis)
		}
		return NewRedisStore(ctx, opts.RedisURL)
	case BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("replay backend %q requires a state database", BackendSQLite)
		}
		return NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown replay backend %q", opts.Backend)
	}
}
