package todos

import (
	"context"

	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

// Repository stores todos. Every read or mutation of a single todo is
// filtered by both its id and its owner.
type Repository interface {
	Create(ctx context.Context, todo *models.Todo) (*models.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Todo, error)
	GetOwned(ctx context.Context, id, userID string) (*models.Todo, error)
	ToggleCompleted(ctx context.Context, id, userID string) (*models.Todo, error)
	DeleteOwned(ctx context.Context, id, userID string) error
}
