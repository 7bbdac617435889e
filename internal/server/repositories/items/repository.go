package items

import (
	"context"

	"github.com/stackdeck/credvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, item *models.VaultItem) (*models.VaultItem, error)
	GetByID(ctx context.Context, id string) (*models.VaultItem, error)
	Update(ctx context.Context, item *models.VaultItem) error
	Delete(ctx context.Context, id string) error
	ListForActor(ctx context.Context, actorID string, admin bool) ([]*models.VaultItem, error)
	RecordReveal(ctx context.Context, id string) (int64, error)
}
