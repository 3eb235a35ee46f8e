package store

import (
	"context"
	"database/sql"

	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/schema"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database is the shared connection pool and the dialect its queries are written for.
type Database struct {
	DB      *sql.DB
	Dialect Dialect
	logger  *zap.SugaredLogger
}

func NewDatabase(lc fx.Lifecycle, env *conf.Env, logger *zap.SugaredLogger) (*Database, error) {
	db, err := Open(context.Background(), env.Database, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.logger.Info("Closing database pool")
			return db.DB.Close()
		},
	})
	return db, nil
}

// Open creates the pool, waits for the database to answer and bootstraps the
// schema when configured to.
func Open(ctx context.Context, cfg conf.DatabaseConfig, logger *zap.SugaredLogger) (*Database, error) {
	log := logger.Named("database")
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	pool, err := sql.Open(string(dialect), cfg.Url)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", dialect)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, errors.Wrapf(err, "connecting to %s database", dialect)
	}

	db := &Database{DB: pool, Dialect: dialect, logger: log}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = pool.Close()
			return nil, err
		}
	}
	log.Infof("Connected to %s database", dialect)
	return db, nil
}

// Migrate runs the bootstrap schema. Every statement is idempotent.
func (db *Database) Migrate(ctx context.Context) error {
	stmts, err := schema.Bootstrap(string(db.Dialect))
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "bootstrapping schema")
		}
	}
	db.logger.Debugf("Bootstrapped schema with %d statements", len(stmts))
	return nil
}

// Rebind is shorthand for db.Dialect.Rebind.
func (db *Database) Rebind(query string) string {
	return db.Dialect.Rebind(query)
}
