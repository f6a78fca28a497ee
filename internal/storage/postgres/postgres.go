package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeovahfialho/stock-etl/internal/config"
	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

// PoolOptions sizes and bounds the connection pool behind the price store.
type PoolOptions struct {
	URL            string
	MaxConns       int32
	MinConns       int32
	MaxConnLife    time.Duration
	MaxConnIdle    time.Duration
	ConnectTimeout time.Duration
}

// PoolOptionsFromConfig copies the DATABASE_* settings out of cfg.
func PoolOptionsFromConfig(cfg *config.Config) PoolOptions {
	return PoolOptions{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		MaxConnLife:    cfg.DatabaseMaxConnLife,
		MaxConnIdle:    cfg.DatabaseMaxConnIdle,
		ConnectTimeout: cfg.DatabaseConnectTimeout,
	}
}

// ParseConfig turns opts into a pgxpool config without connecting. Zero
// durations keep pgxpool's defaults.
func (opts PoolOptions) ParseConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse database url", err)
	}
	if opts.MinConns > opts.MaxConns {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"database min conns %d exceeds max conns %d", opts.MinConns, opts.MaxConns)
	}

	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns
	if opts.MaxConnLife > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLife
	}
	if opts.MaxConnIdle > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdle
	}
	if opts.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	return poolConfig, nil
}

type DB struct {
	pool *pgxpool.Pool
}

// NewDB opens a pool sized from cfg and pings it once within the connect
// timeout.
func NewDB(ctx context.Context, cfg *config.Config) (*DB, error) {
	return Open(ctx, PoolOptionsFromConfig(cfg))
}

func Open(ctx context.Context, opts PoolOptions) (*DB, error) {
	poolConfig, err := opts.ParseConfig()
	if err != nil {
		return nil, err
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to create pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to connect", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}
