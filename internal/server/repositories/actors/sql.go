// Package actors persists registered users. Emails are stored lower-cased
// and are unique across all roles.
package actors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/dbx"
	"github.com/dmitrijs2005/certhub/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
	d  dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, d: d}
}

const selectActor = `SELECT id, username, email, password_hash, role, domain_verified, created_at FROM actors`

func (r *SQLRepository) Create(ctx context.Context, a *models.Actor) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))

	query := r.d.Rebind(
		`INSERT INTO actors (id, username, email, password_hash, role, domain_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Username, a.Email, a.PasswordHash, string(a.Role), a.DomainVerified, dbx.FormatTime(a.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: email %s already registered", common.ErrConflict, a.Email)
		}
		return fmt.Errorf("%w: insert actor: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.Actor, error) {
	query := r.d.Rebind(selectActor + ` WHERE email = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Actor, error) {
	query := r.d.Rebind(selectActor + ` WHERE id = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLRepository) scanOne(row *sql.Row) (*models.Actor, error) {
	var (
		a         models.Actor
		role      string
		createdAt string
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.DomainVerified, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: select actor: %v", common.ErrPersistence, err)
	}

	a.Role = models.Role(role)
	if a.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: actor %d created_at: %v", common.ErrPersistence, a.ID, err)
	}
	return &a, nil
}
