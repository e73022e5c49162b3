// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package store opens the account and verification repositories for the
// configured backend.
package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/memory"
	"github.com/okiri/okiri/internal/auth/postgres"
	"github.com/okiri/okiri/internal/auth/redis"
	"github.com/okiri/okiri/internal/auth/sqlite"
	"github.com/okiri/okiri/internal/xdg"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverMemory, DriverSQLite, DriverPostgres, DriverRedis}

// Config selects and addresses a backend.
type Config struct {
	// Driver is one of Drivers.
	Driver string
	// DSN is the SQLite file path or the PostgreSQL URL.
	DSN string
	// RedisAddr is host:port of the Redis server.
	RedisAddr string
	// RedisPrefix namespaces Redis keys. Empty uses redis.DefaultPrefix.
	RedisPrefix string
	// AutoMigrate applies pending PostgreSQL migrations on open.
	// SQLite is always migrated on open.
	AutoMigrate bool
	// ConnectAttempts bounds connection retries for network backends.
	ConnectAttempts uint64
}

// Backend holds the repositories of one opened store.
type Backend struct {
	Accounts      auth.AccountRepository
	Verifications auth.VerificationRepository

	closers []func() error
}

// Close releases the underlying connections.
func (b *Backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// Open connects to the backend named by cfg.Driver. Network backends are
// retried with exponential backoff before giving up.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", cfg.Driver)

	switch cfg.Driver {
	case DriverMemory:
		return &Backend{
			Accounts:      memory.NewAccountRepository(),
			Verifications: memory.NewVerificationRepository(),
		}, nil
	case DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case DriverRedis:
		return openRedis(ctx, cfg, logger)
	default:
		return nil, oops.Code("STORE_UNKNOWN_DRIVER").
			With("driver", cfg.Driver).
			Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, oops.Code("STORE_CONFIG_INVALID").Errorf("sqlite requires a dsn")
	}
	if cfg.DSN != ":memory:" && !strings.HasPrefix(cfg.DSN, "file:") {
		if err := xdg.EnsureDir(filepath.Dir(cfg.DSN)); err != nil {
			return nil, err
		}
	}
	db, err := sqlite.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "store opened", "dsn", cfg.DSN)
	return &Backend{
		Accounts:      sqlite.NewAccountRepository(db),
		Verifications: sqlite.NewVerificationRepository(db),
		closers:       []func() error{db.Close},
	}, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, oops.Code("STORE_CONFIG_INVALID").Errorf("postgres requires a dsn")
	}

	if cfg.AutoMigrate {
		if err := migratePostgres(cfg.DSN, logger); err != nil {
			return nil, err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").Wrap(err)
	}
	if err := connect(ctx, cfg, logger, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "store opened")
	return &Backend{
		Accounts:      postgres.NewAccountRepository(pool),
		Verifications: postgres.NewVerificationRepository(pool),
		closers: []func() error{func() error {
			pool.Close()
			return nil
		}},
	}, nil
}

func migratePostgres(dsn string, logger *slog.Logger) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			logger.Warn("failed to close migrator", "error", cerr)
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	version, _, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("schema migrated", "version", version, "name", postgres.MigrationName(version))
	return nil
}

func openRedis(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.RedisAddr == "" {
		return nil, oops.Code("STORE_CONFIG_INVALID").Errorf("redis requires an address")
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := connect(ctx, cfg, logger, ping); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "store opened", "addr", cfg.RedisAddr)
	return &Backend{
		Accounts:      redis.NewAccountRepository(client, cfg.RedisPrefix),
		Verifications: redis.NewVerificationRepository(client, cfg.RedisPrefix),
		closers:       []func() error{client.Close},
	}, nil
}

// connect pings until the backend answers or the attempts are used up.
func connect(ctx context.Context, cfg Config, logger *slog.Logger, ping func(context.Context) error) error {
	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			logger.WarnContext(ctx, "store not reachable", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_CONNECT_FAILED").
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}
