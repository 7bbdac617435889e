package audit

import (
	"context"

	"github.com/stackdeck/credvault/internal/server/models"
)

// Repository is append-only by design: no update or delete is exposed.
type Repository interface {
	Insert(ctx context.Context, entry *models.VaultAuditLogEntry) error
	ListForItem(ctx context.Context, itemID string, limit int) ([]*models.VaultAuditLogEntry, error)
	ListRecent(ctx context.Context, limit int) ([]*models.VaultAuditLogEntry, error)
}
