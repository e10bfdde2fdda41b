package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/ingest"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/certhub/internal/server/store"
)

// Dispatcher queues certificate mail without blocking.
type Dispatcher interface {
	EnqueueCertificate(ctx context.Context, certID int64, to string)
}

// CredentialIssuer turns ingested rows into certificates.
type CredentialIssuer struct {
	store    *store.Store
	dispatch Dispatcher
	logger   logging.Logger
	now      func() time.Time
}

// NewCredentialIssuer builds an issuer. dispatch is nil when outbound mail
// is not configured.
func NewCredentialIssuer(s *store.Store, dispatch Dispatcher, logger logging.Logger) *CredentialIssuer {
	return &CredentialIssuer{
		store:    s,
		dispatch: dispatch,
		logger:   logger.With("module", "issuer"),
		now:      time.Now,
	}
}

// IssueCSV parses comma-separated data and issues one certificate per row.
func (s *CredentialIssuer) IssueCSV(ctx context.Context, data []byte, templateID string) ([]models.Certificate, error) {
	res, err := ingest.Parse(data, ',')
	if err != nil {
		return nil, err
	}
	return s.Issue(ctx, res.Rows, templateID)
}

// Issue persists one certificate and its proof per row in a single
// transaction, so either every row is issued or none is. Ids are
// contiguous within the batch. Mail is queued only after commit.
func (s *CredentialIssuer) Issue(ctx context.Context, rows []ingest.Row, templateID string) ([]models.Certificate, error) {
	templateID = strings.TrimSpace(templateID)
	var tplRef *string
	if templateID != "" {
		tplRef = &templateID
	}

	issued := make([]models.Certificate, 0, len(rows))
	now := s.now().UTC()

	err := s.store.WithTx(ctx, func(ctx context.Context, r *repomanager.Repos) error {
		if tplRef != nil {
			if _, err := r.Templates.Get(ctx, templateID); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return fmt.Errorf("%w: unknown template %s", common.ErrValidation, templateID)
				}
				return err
			}
		}

		for _, row := range rows {
			id, err := r.Counters.Next(ctx, store.CollectionCertificates)
			if err != nil {
				return err
			}

			c := models.Certificate{
				ID:          id,
				Fields:      presentFields(row),
				GeneratedAt: now,
				TemplateID:  tplRef,
			}
			if email, ok := c.Field(models.FieldEmail); ok && tplRef != nil && s.dispatch != nil {
				at := now
				c.EmailedTo, c.EmailedAt = &email, &at
			}
			if err := r.Certificates.Create(ctx, &c); err != nil {
				return err
			}

			proofID, err := r.Counters.Next(ctx, store.CollectionProofs)
			if err != nil {
				return err
			}
			if err := r.Proofs.Append(ctx, &models.Proof{
				ID:        proofID,
				CertID:    id,
				Digest:    Digest(c.Fields),
				CreatedAt: now,
			}); err != nil {
				return err
			}

			issued = append(issued, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	queued := 0
	for _, c := range issued {
		if c.EmailedTo != nil {
			s.dispatch.EnqueueCertificate(ctx, c.ID, *c.EmailedTo)
			queued++
		}
	}

	s.logger.Info(ctx, "certificates issued", "count", len(issued), "queued_mail", queued, "template_id", templateID)
	return issued, nil
}

// Resend queues the certificate mail again and restamps the record.
func (s *CredentialIssuer) Resend(ctx context.Context, certID int64) (*models.Certificate, error) {
	if s.dispatch == nil {
		return nil, fmt.Errorf("%w: outbound mail is not configured", common.ErrValidation)
	}

	var updated *models.Certificate
	err := s.store.WithTx(ctx, func(ctx context.Context, r *repomanager.Repos) error {
		var err error
		updated, err = r.Certificates.Update(ctx, certID, func(c *models.Certificate) error {
			email, ok := c.Field(models.FieldEmail)
			if !ok {
				return fmt.Errorf("%w: certificate %d has no email", common.ErrValidation, certID)
			}
			at := s.now().UTC()
			c.EmailedTo, c.EmailedAt = &email, &at
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.EnqueueCertificate(ctx, updated.ID, *updated.EmailedTo)
	return updated, nil
}

// presentFields drops empty cells; a missing value is an absent field.
func presentFields(row ingest.Row) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
