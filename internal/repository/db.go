package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// DB is an ent SQL driver over either a pgx pool or an embedded SQLite file.
type DB struct {
	drv  *entsql.Driver
	pool *pgxpool.Pool
}

// IsPostgresDSN reports whether dsn points at PostgreSQL.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to the DSN's database and wraps it for ent. postgres:// DSNs
// go through a pgx pool; anything else is a SQLite path (optionally
// prefixed with sqlite://).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if IsPostgresDSN(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "pgx")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	path := strings.TrimPrefix(cfg.DSN, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	logger.Info("opening database", "driver", "sqlite", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to open database", "error", err)
		return nil, err
	}
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db)}, nil
}

// Driver is the ent SQL driver used for statements.
func (d *DB) Driver() *entsql.Driver { return d.drv }

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("closing database connections")
	if d.drv != nil {
		if err := d.drv.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.drv.DB().PingContext(ctx)
}
