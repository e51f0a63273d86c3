// Package pg bootstraps the PostgreSQL layer on top of the pgx/v5 driver:
// a retrying connection pool, embedded goose migrations, a health check and
// helpers that classify pgconn errors.
//
// The API surface is deliberately small. Callers get a plain *pgxpool.Pool
// back and use pgx directly for queries, so nothing here stands between the
// stores and the driver.
//
// # Architecture
//
// Three pieces cooperate:
//
//   - Config is populated from environment variables with caarlos0/env tags.
//     It controls pool limits, connection lifetimes, the connect retry
//     policy and the goose version table name.
//
//   - Connect parses the connection string, applies the pool limits and
//     pings the server. Failed attempts are retried with a linearly growing
//     delay until RetryAttempts is exhausted or the context is done.
//
//   - Migrate bridges the pool to database/sql with stdlib.OpenDBFromPool and
//     runs goose against an fs.FS, usually the embedded db.Migrations. goose
//     output is routed into the supplied slog.Logger.
//
// # Usage
//
//	import (
//	    "github.com/swarmdock/backend/db"
//	    "github.com/swarmdock/backend/pkg/config"
//	    "github.com/swarmdock/backend/pkg/pg"
//	)
//
//	func run(ctx context.Context, log *slog.Logger) error {
//	    var cfg pg.Config
//	    if err := config.Load(&cfg); err != nil {
//	        return err
//	    }
//
//	    pool, err := pg.Connect(ctx, cfg)
//	    if err != nil {
//	        return err
//	    }
//	    defer pool.Close()
//
//	    if err := pg.Migrate(ctx, pool, cfg, db.Migrations, db.MigrationsDir, log); err != nil {
//	        return err
//	    }
//
//	    check := pg.Healthcheck(pool)
//	    return check(ctx)
//	}
//
// # Configuration
//
// DATABASE_URL is required. PG_MAX_OPEN_CONNS, PG_MAX_IDLE_CONNS,
// PG_HEALTHCHECK_PERIOD, PG_MAX_CONN_IDLE_TIME and PG_MAX_CONN_LIFETIME tune
// the pool. PG_RETRY_ATTEMPTS and PG_RETRY_INTERVAL control Connect, and
// PG_MIGRATIONS_TABLE names the goose version table.
//
// # Error Handling
//
// Failures are returned as errors.Join of a package sentinel
// (ErrFailedToOpenDBConnection, ErrFailedToApplyMigrations,
// ErrHealthcheckFailed, ...) and the underlying cause, so callers can match
// with errors.Is while keeping the driver message.
//
// Stores translate driver errors with IsNotFoundError (pgx.ErrNoRows),
// IsDuplicateKeyError (SQLSTATE 23505) and IsForeignKeyViolationError
// (SQLSTATE 23503). The plan store, for example, maps a unique index
// violation on concurrent activation to its own conflict error:
//
//	if pg.IsDuplicateKeyError(err) {
//	    return nil, plan.ErrConflict
//	}
package pg
