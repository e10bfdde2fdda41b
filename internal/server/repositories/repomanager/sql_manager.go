package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/certhub/internal/dbx"
	"github.com/dmitrijs2005/certhub/internal/server/migrations"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/actors"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/counters"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/proofs"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/templates"
)

// SQLRepositoryManager builds database/sql repositories for one dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewSQLRepositoryManager(d dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}

func (m *SQLRepositoryManager) Actors(db dbx.DBTX) actors.Repository {
	return actors.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Templates(db dbx.DBTX) templates.Repository {
	return templates.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Certificates(db dbx.DBTX) certificates.Repository {
	return certificates.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Proofs(db dbx.DBTX) proofs.Repository {
	return proofs.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Counters(db dbx.DBTX) counters.Repository {
	return counters.NewSQLRepository(db, m.dialect)
}

// applyMigrations is a seam for tests.
var applyMigrations = migrations.Apply

// RunMigrations applies the embedded goose migrations.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	dialect := "sqlite3"
	if m.dialect == dbx.Postgres {
		dialect = "pgx"
	}
	return applyMigrations(ctx, db, dialect)
}
