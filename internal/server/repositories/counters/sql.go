package counters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/dbx"
)

type SQLRepository struct {
	db dbx.DBTX
	d  dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, d: d}
}

func (r *SQLRepository) Next(ctx context.Context, name string) (int64, error) {
	query := r.d.Rebind(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`)

	var v int64
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&v); err != nil {
		return 0, fmt.Errorf("%w: next %s: %v", common.ErrPersistence, name, err)
	}
	return v, nil
}

// current returns the last allocated value, or 0.
func (r *SQLRepository) current(ctx context.Context, name string) (int64, error) {
	query := r.d.Rebind(`SELECT value FROM counters WHERE name = ?`)

	var v int64
	err := r.db.QueryRowContext(ctx, query, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: current %s: %v", common.ErrPersistence, name, err)
	}
	return v, nil
}
