// Package store is the record store: it owns the database connection,
// applies migrations, and runs units of work in transactions over the
// per-table repositories.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/dbx"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Collection names used for id allocation.
const (
	CollectionActors       = "actors"
	CollectionCertificates = "certificates"
	CollectionProofs       = "proofs"
)

type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
	manager repomanager.RepositoryManager
	logger  logging.Logger
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to dsn and migrates the schema. A postgres:// DSN selects
// PostgreSQL through pgx; anything else is a SQLite DSN.
//
// SQLite is limited to a single connection, so every write transaction is
// serialized and readers only see committed state.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Store, error) {
	dialect := dbx.DialectFor(dsn)

	db, err := sqlOpen(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrPersistence, dialect, err)
	}
	if dialect == dbx.SQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", common.ErrPersistence, dialect, err)
	}

	s := New(db, dialect, repomanager.NewSQLRepositoryManager(dialect), logger)
	if err := s.manager.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrPersistence, err)
	}

	logger.Info(ctx, "record store ready", "dialect", string(dialect))
	return s, nil
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect dbx.Dialect, manager repomanager.RepositoryManager, logger logging.Logger) *Store {
	return &Store{db: db, dialect: dialect, manager: manager, logger: logger.With("module", "store")}
}

func (s *Store) Dialect() dbx.Dialect { return s.dialect }

func (s *Store) Close() error { return s.db.Close() }

// Repos returns repositories bound to the pool, for single-statement reads.
func (s *Store) Repos() *repomanager.Repos {
	return repomanager.Bind(s.manager, s.db)
}

// WithTx runs fn with repositories bound to one transaction. Nothing fn
// wrote is visible unless it returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r *repomanager.Repos) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, repomanager.Bind(s.manager, tx))
	})
}

// AllocateID returns the next id for collection in its own transaction.
func (s *Store) AllocateID(ctx context.Context, collection string) (int64, error) {
	var id int64
	err := s.WithTx(ctx, func(ctx context.Context, r *repomanager.Repos) error {
		var err error
		id, err = r.Counters.Next(ctx, collection)
		return err
	})
	return id, err
}
