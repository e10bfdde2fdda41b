package actors

import (
	"context"

	"github.com/dmitrijs2005/certhub/internal/server/models"
)

type Repository interface {
	// Create inserts an actor with a caller-allocated ID. A taken email
	// yields common.ErrConflict.
	Create(ctx context.Context, actor *models.Actor) error
	GetByEmail(ctx context.Context, email string) (*models.Actor, error)
	GetByID(ctx context.Context, id int64) (*models.Actor, error)
}
