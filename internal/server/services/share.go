package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/repositories/repomanager"
)

// ShareService manages the explicit grants consumed by the permission
// resolver.
type ShareService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewShareService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *ShareService {
	return &ShareService{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "share"),
	}
}

// Share grants granteeID the given level on the item, overwriting any
// existing grant for the pair. Owners cannot be granted to themselves.
func (s *ShareService) Share(ctx context.Context, actor *models.Actor, origin models.Origin, itemID, granteeID string, level models.PermissionLevel) error {
	if granteeID == "" {
		return fmt.Errorf("%w: grantee is required", common.ErrorValidation)
	}
	if !level.Valid() {
		return fmt.Errorf("%w: unknown permission level %q", common.ErrorValidation, level)
	}

	item, err := s.repos.Items(s.db).GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := requireOwnerOrAdmin(item, actor); err != nil {
		return err
	}
	if granteeID == item.OwnerID {
		return fmt.Errorf("%w: cannot share an item with its owner", common.ErrorValidation)
	}

	err = withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		perm := &models.VaultPermission{
			VaultItemID:     itemID,
			GranteeID:       granteeID,
			PermissionLevel: level,
			GrantedBy:       actor.ID,
		}
		if err := s.repos.Permissions(tx).Upsert(ctx, perm); err != nil {
			return err
		}
		entry := newAuditEntry(itemID, actor, origin, models.AuditActionShare, map[string]any{
			"grantee_id":       granteeID,
			"permission_level": level,
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "grant upserted", "item_id", itemID, "grantee_id", granteeID, "level", string(level))
	return nil
}

// Revoke removes the grant for (item, grantee). The delete is idempotent,
// and the revoke audit entry is written even when no grant existed:
// revocation intent is itself audit-worthy.
func (s *ShareService) Revoke(ctx context.Context, actor *models.Actor, origin models.Origin, itemID, granteeID string) error {
	item, err := s.repos.Items(s.db).GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := requireOwnerOrAdmin(item, actor); err != nil {
		return err
	}

	err = withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		existed, err := s.repos.Permissions(tx).Delete(ctx, itemID, granteeID)
		if err != nil {
			return err
		}
		entry := newAuditEntry(itemID, actor, origin, models.AuditActionRevoke, map[string]any{
			"grantee_id":    granteeID,
			"grant_existed": existed,
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "grant revoked", "item_id", itemID, "grantee_id", granteeID)
	return nil
}

// ListGrants returns the explicit grants on an item. Owner or admin only.
func (s *ShareService) ListGrants(ctx context.Context, actor *models.Actor, itemID string) ([]*models.VaultPermission, error) {
	item, err := s.repos.Items(s.db).GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(item, actor); err != nil {
		return nil, err
	}
	return s.repos.Permissions(s.db).ListForItem(ctx, itemID)
}
