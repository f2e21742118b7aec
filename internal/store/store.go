// Package store owns the PostgreSQL pool: opening it, bringing the schema up
// to date and reporting on its health.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes the pool and what Open does after connecting.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int

	// Migrations, when set, holds a "migrations" directory that Open applies
	// before returning.
	Migrations fs.FS

	Logger hclog.Logger
}

// Store is the catalogue database handle shared by the repositories and the
// health endpoint.
type Store struct {
	pool        *pgxpool.Pool
	logger      hclog.Logger
	pingTimeout time.Duration
}

// Health is the database section of the /healthz report.
type Health struct {
	SchemaVersion string `json:"schemaVersion,omitempty"`
	TotalConns    int32  `json:"totalConns"`
	IdleConns     int32  `json:"idleConns"`
	AcquiredConns int32  `json:"acquiredConns"`
}

// Open connects, verifies the connection and applies pending migrations when
// opts.Migrations is set. The returned store owns the pool.
func Open(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	cfg, err := poolConfig(dbURL, opts)
	if err != nil {
		return nil, err
	}

	if opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)

	st := &Store{pool: pool, logger: logger, pingTimeout: opts.ConnTimeout}
	if opts.Migrations != nil {
		applied, err := st.Migrate(ctx, opts.Migrations, "migrations")
		if err != nil {
			pool.Close()
			return nil, err
		}
		if len(applied) > 0 {
			logger.Info("schema updated", "versions", applied)
		}
	}
	return st, nil
}

// poolConfig translates Options onto a parsed pool config. Zero values keep
// pgxpool's defaults; a negative statement cache leaves the exec mode alone.
func poolConfig(dbURL string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}
	return cfg, nil
}

// NewWithPool wraps a pool the caller already connected, as tests do.
func NewWithPool(pool *pgxpool.Pool, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Info("closing connection pool")
	s.pool.Close()
}

// Pool exposes the pool to the repositories.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Health pings the database and reports the applied schema version along
// with pool usage. The ping is bounded by the configured connect timeout.
func (s *Store) Health(ctx context.Context) (Health, error) {
	if s == nil || s.pool == nil {
		return Health{}, errors.New("store not initialized")
	}
	if s.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pingTimeout)
		defer cancel()
	}
	if err := s.pool.Ping(ctx); err != nil {
		return Health{}, fmt.Errorf("ping postgres: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return Health{}, err
	}

	stat := s.pool.Stat()
	return Health{
		SchemaVersion: version,
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
	}, nil
}

// SchemaVersion returns the newest applied migration, or "" before the first
// migration has run.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var tracked bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass('schema_migrations') IS NOT NULL`).Scan(&tracked); err != nil {
		return "", fmt.Errorf("find schema_migrations: %w", err)
	}
	if !tracked {
		return "", nil
	}

	var version *string
	if err := s.pool.QueryRow(ctx, `SELECT max(version) FROM schema_migrations`).Scan(&version); err != nil {
		return "", fmt.Errorf("read schema version: %w", err)
	}
	if version == nil {
		return "", nil
	}
	return *version, nil
}
