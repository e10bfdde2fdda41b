package proofs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *SQLRepository) Append(ctx context.Context, p *models.Proof) error {
	query := r.d.Rebind(`INSERT INTO proofs (id, cert_id, digest, created_at) VALUES (?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.CertID, p.Digest, dbx.FormatTime(p.CreatedAt)); err != nil {
		return fmt.Errorf("%w: insert proof: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *SQLRepository) Latest(ctx context.Context, certID int64) (*models.Proof, error) {
	query := r.d.Rebind(
		`SELECT id, cert_id, digest, created_at FROM proofs
		 WHERE cert_id = ? ORDER BY id DESC LIMIT 1`)

	var (
		p         models.Proof
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, certID).Scan(&p.ID, &p.CertID, &p.Digest, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: select proof: %v", common.ErrPersistence, err)
	}
	if p.CreatedAt, err = dbx.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: proof %d created_at: %v", common.ErrPersistence, p.ID, err)
	}
	return &p, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM proofs`)
	if err != nil {
		return 0, fmt.Errorf("%w: delete proofs: %v", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: delete proofs: %v", common.ErrPersistence, err)
	}
	return n, nil
}
