package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"go.uber.org/zap"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Backends lists the supported backends
var Backends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendRedis}

// Options selects and configures a store backend
type Options struct {
	Backend       string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Table         string
	KeyPrefix     string
}

// Open creates the store for the configured backend and checks it is reachable
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil

	case BackendSQLite:
		if opts.DSN == "" {
			return nil, fmt.Errorf("sqlite session store requires a dsn")
		}
		if !strings.HasPrefix(opts.DSN, "file:") && opts.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(opts.DSN), 0755); err != nil {
				return nil, fmt.Errorf("failed to create session directory: %w", err)
			}
		}
		return openDatabase(ctx, "sqlite3", opts, logger)

	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres session store requires a dsn")
		}
		return openDatabase(ctx, "pgx", opts, logger)

	case BackendRedis:
		cfg := DefaultRedisConfig(opts.RedisAddr)
		cfg.Password = opts.RedisPassword
		cfg.DB = opts.RedisDB
		if opts.KeyPrefix != "" {
			cfg.KeyPrefix = opts.KeyPrefix
		}
		store := NewRedisStore(cfg)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis session store unreachable at %s: %w", opts.RedisAddr, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown session backend %q (expected one of %s)", opts.Backend, strings.Join(Backends, ", "))
	}
}

func openDatabase(ctx context.Context, driver string, opts Options, logger *zap.Logger) (Store, error) {
	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if driver == "sqlite3" {
		// a single connection keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("session database unreachable: %w", err)
	}

	cfg := DefaultDatabaseConfig(db)
	cfg.CloseDB = true
	cfg.Logger = logger
	if opts.Table != "" {
		cfg.TableName = opts.Table
	}

	store, err := NewDatabaseStore(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
