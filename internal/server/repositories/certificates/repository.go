package certificates

import (
	"context"

	"github.com/dmitrijs2005/certhub/internal/server/models"
)

type Repository interface {
	// Create inserts a certificate with a caller-allocated ID.
	Create(ctx context.Context, c *models.Certificate) error
	Get(ctx context.Context, id int64) (*models.Certificate, error)
	// List returns all certificates ordered by ID.
	List(ctx context.Context) ([]models.Certificate, error)
	ListByHolderEmail(ctx context.Context, email string) ([]models.Certificate, error)
	// Update loads the certificate, applies mutate and stores the result.
	// Call it inside a transaction; on PostgreSQL the row is locked.
	Update(ctx context.Context, id int64, mutate func(*models.Certificate) error) (*models.Certificate, error)
	DeleteAll(ctx context.Context) (int64, error)
}
