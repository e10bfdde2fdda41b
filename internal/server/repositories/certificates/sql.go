// Package certificates persists issued certificate records. The holder
// field map is stored as a JSON document next to a lower-cased copy of the
// holder email used for lookups.
package certificates

import (
	"context"
	"database/sql"
	"encoding/json"
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

const selectCertificate = `SELECT id, fields, generated_at, template_id, emailed_to, emailed_at FROM certificates`

func holderEmail(c *models.Certificate) string {
	email, _ := c.Field(models.FieldEmail)
	return strings.ToLower(email)
}

func (r *SQLRepository) Create(ctx context.Context, c *models.Certificate) error {
	if c.Fields == nil {
		c.Fields = map[string]string{}
	}
	fields, err := json.Marshal(c.Fields)
	if err != nil {
		return fmt.Errorf("%w: fields: %v", common.ErrValidation, err)
	}

	query := r.d.Rebind(
		`INSERT INTO certificates (id, fields, holder_email, generated_at, template_id, emailed_to, emailed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		c.ID, string(fields), holderEmail(c), dbx.FormatTime(c.GeneratedAt),
		c.TemplateID, c.EmailedTo, dbx.NullableTime(c.EmailedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: certificate %d exists", common.ErrConflict, c.ID)
		}
		return fmt.Errorf("%w: insert certificate: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*models.Certificate, error) {
	return r.getOne(ctx, r.d.Rebind(selectCertificate+` WHERE id = ?`), id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, id int64) (*models.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%w: select certificate: %v", common.ErrPersistence, err)
	}
	list, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	return &list[0], nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, selectCertificate+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list certificates: %v", common.ErrPersistence, err)
	}
	return collect(rows)
}

func (r *SQLRepository) ListByHolderEmail(ctx context.Context, email string) ([]models.Certificate, error) {
	query := r.d.Rebind(selectCertificate + ` WHERE holder_email = ? ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%w: list certificates: %v", common.ErrPersistence, err)
	}
	return collect(rows)
}

func (r *SQLRepository) Update(ctx context.Context, id int64, mutate func(*models.Certificate) error) (*models.Certificate, error) {
	query := selectCertificate + ` WHERE id = ?`
	if r.d == dbx.Postgres {
		query += ` FOR UPDATE`
	}

	c, err := r.getOne(ctx, r.d.Rebind(query), id)
	if err != nil {
		return nil, err
	}
	if err := mutate(c); err != nil {
		return nil, err
	}
	c.ID = id

	fields, err := json.Marshal(c.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: fields: %v", common.ErrValidation, err)
	}

	update := r.d.Rebind(
		`UPDATE certificates
		 SET fields = ?, holder_email = ?, template_id = ?, emailed_to = ?, emailed_at = ?
		 WHERE id = ?`)
	_, err = r.db.ExecContext(ctx, update,
		string(fields), holderEmail(c), c.TemplateID, c.EmailedTo, dbx.NullableTime(c.EmailedAt), id)
	if err != nil {
		return nil, fmt.Errorf("%w: update certificate %d: %v", common.ErrPersistence, id, err)
	}
	return c, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM certificates`)
	if err != nil {
		return 0, fmt.Errorf("%w: delete certificates: %v", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: delete certificates: %v", common.ErrPersistence, err)
	}
	return n, nil
}

// collect drains and closes rows.
func collect(rows *sql.Rows) ([]models.Certificate, error) {
	defer rows.Close()

	var out []models.Certificate
	for rows.Next() {
		var (
			c           models.Certificate
			fields, gen string
			templateID  sql.NullString
			emailedTo   sql.NullString
			emailedAt   sql.NullString
		)
		if err := rows.Scan(&c.ID, &fields, &gen, &templateID, &emailedTo, &emailedAt); err != nil {
			return nil, fmt.Errorf("%w: scan certificate: %v", common.ErrPersistence, err)
		}
		if err := json.Unmarshal([]byte(fields), &c.Fields); err != nil {
			return nil, fmt.Errorf("%w: certificate %d fields: %v", common.ErrPersistence, c.ID, err)
		}

		var err error
		if c.GeneratedAt, err = dbx.ParseTime(gen); err != nil {
			return nil, fmt.Errorf("%w: certificate %d generated_at: %v", common.ErrPersistence, c.ID, err)
		}
		if templateID.Valid {
			c.TemplateID = &templateID.String
		}
		if emailedTo.Valid {
			c.EmailedTo = &emailedTo.String
		}
		if emailedAt.Valid {
			at, err := dbx.ParseTime(emailedAt.String)
			if err != nil {
				return nil, fmt.Errorf("%w: certificate %d emailed_at: %v", common.ErrPersistence, c.ID, err)
			}
			c.EmailedAt = &at
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan certificates: %v", common.ErrPersistence, err)
	}
	return out, nil
}
