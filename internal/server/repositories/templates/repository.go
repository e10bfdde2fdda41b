package templates

import (
	"context"

	"github.com/dmitrijs2005/certhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.Template) error
	Get(ctx context.Context, id string) (*models.Template, error)
	// List returns templates in upload order.
	List(ctx context.Context) ([]models.Template, error)
	DeleteAll(ctx context.Context) (int64, error)
}
