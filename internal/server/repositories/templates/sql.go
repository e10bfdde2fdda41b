// Package templates persists template metadata. Image bytes live in blob
// storage under Template.Filename.
package templates

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *SQLRepository) Create(ctx context.Context, t *models.Template) error {
	layout, err := json.Marshal(t.Layout)
	if err != nil {
		return fmt.Errorf("%w: layout: %v", common.ErrValidation, err)
	}

	query := r.d.Rebind(
		`INSERT INTO templates (id, filename, layout, uploaded_by, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query, t.ID, t.Filename, string(layout), t.UploadedBy, dbx.FormatTime(t.UploadedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: template %s exists", common.ErrConflict, t.ID)
		}
		return fmt.Errorf("%w: insert template: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Template, error) {
	query := r.d.Rebind(`SELECT id, filename, layout, uploaded_by, uploaded_at FROM templates WHERE id = ?`)

	var layout, uploadedAt string
	t := &models.Template{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Filename, &layout, &t.UploadedBy, &uploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: select template: %v", common.ErrPersistence, err)
	}

	if err := decode(t, layout, uploadedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, layout, uploaded_by, uploaded_at FROM templates ORDER BY uploaded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list templates: %v", common.ErrPersistence, err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var (
			t                  models.Template
			layout, uploadedAt string
		)
		if err := rows.Scan(&t.ID, &t.Filename, &layout, &t.UploadedBy, &uploadedAt); err != nil {
			return nil, fmt.Errorf("%w: scan template: %v", common.ErrPersistence, err)
		}
		if err := decode(&t, layout, uploadedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list templates: %v", common.ErrPersistence, err)
	}
	return out, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates`)
	if err != nil {
		return 0, fmt.Errorf("%w: delete templates: %v", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: delete templates: %v", common.ErrPersistence, err)
	}
	return n, nil
}

func decode(t *models.Template, layout, uploadedAt string) error {
	if err := json.Unmarshal([]byte(layout), &t.Layout); err != nil {
		return fmt.Errorf("%w: template %s layout: %v", common.ErrPersistence, t.ID, err)
	}
	ts, err := dbx.ParseTime(uploadedAt)
	if err != nil {
		return fmt.Errorf("%w: template %s uploaded_at: %v", common.ErrPersistence, t.ID, err)
	}
	t.UploadedAt = ts
	return nil
}
