package permissions

import (
	"context"

	"github.com/stackdeck/credvault/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, perm *models.VaultPermission) error
	Get(ctx context.Context, itemID, granteeID string) (*models.VaultPermission, error)
	Delete(ctx context.Context, itemID, granteeID string) (bool, error)
	ListForItem(ctx context.Context, itemID string) ([]*models.VaultPermission, error)
}
