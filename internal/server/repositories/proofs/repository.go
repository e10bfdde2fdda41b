// Package proofs stores the append-only content digests recorded when a
// certificate is issued.
package proofs

import (
	"context"

	"github.com/dmitrijs2005/certhub/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, p *models.Proof) error
	// Latest returns the most recent proof for the certificate.
	Latest(ctx context.Context, certID int64) (*models.Proof, error)
	DeleteAll(ctx context.Context) (int64, error)
}
