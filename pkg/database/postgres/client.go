package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Registers the New Relic instrumented pgx driver
	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const driverName = "nrpgx"

type Config struct {
	URL                string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Open returns a connection pool for the database at cfg.URL, once it
// responds to a ping.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	if len(cfg.URL) == 0 {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open(driverName, cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if cfg.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}
