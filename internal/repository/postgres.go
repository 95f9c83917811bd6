package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds how long Connect keeps retrying. Zero means
	// until ctx is done.
	ConnectTimeout time.Duration
}

func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresDB: ping: %w", err)
	}

	return db, nil
}

// Connect opens the pool, retrying with exponential backoff while the
// database is still coming up.
func Connect(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	if pool.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pool.ConnectTimeout)
		defer cancel()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.MaxElapsedTime = 0

	var db *sql.DB
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		var err error
		db, err = NewPostgresDB(ctx, databaseURL, pool)
		return err
	}, backoff.WithContext(eb, ctx), func(err error, next time.Duration) {
		logging.FromContext(ctx).Info("waiting for database", "attempt", attempt, "retry_in", next, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("Connect: gave up after %d attempts: %w", attempt, err)
	}
	return db, nil
}
