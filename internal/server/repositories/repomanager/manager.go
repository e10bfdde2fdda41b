// Package repomanager vends the per-table repositories bound to a database
// handle and runs schema migrations for the configured dialect.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/certhub/internal/dbx"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/actors"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/counters"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/proofs"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/templates"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Actors(db dbx.DBTX) actors.Repository
	Templates(db dbx.DBTX) templates.Repository
	Certificates(db dbx.DBTX) certificates.Repository
	Proofs(db dbx.DBTX) proofs.Repository
	Counters(db dbx.DBTX) counters.Repository
}

// Repos bundles every repository bound to one handle, typically a
// transaction.
type Repos struct {
	Actors       actors.Repository
	Templates    templates.Repository
	Certificates certificates.Repository
	Proofs       proofs.Repository
	Counters     counters.Repository
}

// Bind returns all repositories of m bound to db.
func Bind(m RepositoryManager, db dbx.DBTX) *Repos {
	return &Repos{
		Actors:       m.Actors(db),
		Templates:    m.Templates(db),
		Certificates: m.Certificates(db),
		Proofs:       m.Proofs(db),
		Counters:     m.Counters(db),
	}
}
