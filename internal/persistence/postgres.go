package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// ErrNotConfigured is returned when an operation needs the database and no
// DSN was given.
var ErrNotConfigured = errors.New("postgres not configured")

// Postgres owns the pgx pool shared by the repositories.
type Postgres struct {
	pool *pgxpool.Pool
	cfg  config.PostgresConfig
}

// NewPostgres opens the pool and checks it once. An empty DSN yields an
// unconnected Postgres whose DB is nil, so the process can still serve
// health checks.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	pg := &Postgres{cfg: cfg}
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; running without a database")
		return pg, nil
	}

	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	pg.pool = pool

	if err := pg.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return pg, nil
}

// PoolConfig parses the DSN and applies the configured pool limits. Unset
// limits keep the pgxpool defaults.
func PoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = min(cfg.MinConns, poolCfg.MaxConns)
	}
	if idle := cfg.ConnMaxIdle(); idle > 0 {
		poolCfg.MaxConnIdleTime = idle
	}
	if life := cfg.ConnMaxLife(); life > 0 {
		poolCfg.MaxConnLifetime = life
	}
	return poolCfg, nil
}

// DB exposes the pool to repositories; nil when no database is configured.
func (p *Postgres) DB() DB {
	if p == nil || p.pool == nil {
		return nil
	}
	return p.pool
}

// Ping checks connectivity within the configured ping timeout.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.pool == nil {
		return ErrNotConfigured
	}
	if timeout := p.cfg.PingTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}
