package settings

import (
	"context"

	"github.com/stackdeck/credvault/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context) (*models.VaultSettings, error)
	Update(ctx context.Context, s *models.VaultSettings) error
}
