// Package migrations embeds the goose SQL migrations. The SQL is kept
// portable between SQLite and PostgreSQL: timestamps are RFC 3339 text and
// ids are allocated by the counters table, not by the database.
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// Apply runs all pending migrations. dialect is a goose dialect name
// ("sqlite3" or "pgx").
func Apply(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
