package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/r2bridge/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	// DriverPQ is lib/pq, used for key/value DSNs from config.
	DriverPQ = "postgres"
	// DriverPGX is the pgx stdlib adapter, used for postgres:// URLs from the CLI.
	DriverPGX = "pgx"

	maxConcurrentOps = 10
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens a connection pool from config.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	driver := DriverPQ
	if cfg.URL != "" {
		driver = DriverPGX
	}
	return Open(driver, cfg.DSN())
}

// Open connects with the named driver and verifies the connection.
func Open(driver, dsn string) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db), nil
}

// Wrap adds the concurrency limit to an existing pool.
func Wrap(db *sqlx.DB) *DB {
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrentOps),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
