// Package postgres implements pkg/store's Loader and Persister against a
// PostgreSQL database, grounded on the repository/manager pattern of
// KhryptorGraphics-OllamaMax's pkg/database: a Store wraps a *sqlx.DB,
// exposes typed query methods, and commits multi-table writes through a
// single withTransaction helper that rolls back on any error or panic.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gitrdm/templatesched/internal/errs"
)

// Store is a PostgreSQL-backed store.Loader and store.Persister.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config is the connection configuration, mirroring the
// host/port/name/user/password/sslmode fields the source's own
// DatabaseConfig exposes, plus pool sizing.
type Config struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

// Open connects to PostgreSQL and returns a Store. Callers own the
// returned Store's lifetime and must call Close when done.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "prefer"
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errs.NewStorageFailure("open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	logger.Info("postgres store connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an already-open *sqlx.DB, for callers (tests, the CLI)
// that manage the connection themselves.
func NewWithDB(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTransaction runs fn inside a transaction, committing on success and
// rolling back on any error or panic, per KhryptorGraphics-OllamaMax's
// DatabaseManager.WithTransaction.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.NewStorageFailure("begin_transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = fn(tx)
	return err
}
