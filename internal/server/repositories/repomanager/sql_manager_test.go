package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/certhub/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_ReturnsAllRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var m RepositoryManager = NewSQLRepositoryManager(dbx.SQLite)
	r := Bind(m, db)

	assert.NotNil(t, r.Actors)
	assert.NotNil(t, r.Templates)
	assert.NotNil(t, r.Certificates)
	assert.NotNil(t, r.Proofs)
	assert.NotNil(t, r.Counters)
}

func TestRunMigrations_DialectName(t *testing.T) {
	orig := applyMigrations
	t.Cleanup(func() { applyMigrations = orig })

	var got string
	applyMigrations = func(ctx context.Context, db *sql.DB, dialect string) error {
		got = dialect
		return nil
	}

	require.NoError(t, NewSQLRepositoryManager(dbx.Postgres).RunMigrations(context.Background(), nil))
	assert.Equal(t, "pgx", got)

	require.NoError(t, NewSQLRepositoryManager(dbx.SQLite).RunMigrations(context.Background(), nil))
	assert.Equal(t, "sqlite3", got)
}

func TestRunMigrations_Error(t *testing.T) {
	orig := applyMigrations
	t.Cleanup(func() { applyMigrations = orig })

	applyMigrations = func(context.Context, *sql.DB, string) error { return errors.New("boom") }

	err := NewSQLRepositoryManager(dbx.SQLite).RunMigrations(context.Background(), nil)
	assert.EqualError(t, err, "boom")
}
