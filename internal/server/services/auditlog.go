package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/repositories/repomanager"
)

const defaultAuditLimit = 100

// AuditService exposes read access to the append-only audit log. Writes
// happen inside the other services' transactions; there is no update or
// delete path at all.
type AuditService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewAuditService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *AuditService {
	return &AuditService{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "audit"),
	}
}

// ListForItem returns the item's history, newest first. Owner or admin only.
// History remains queryable after the item itself is deleted, in which case
// only admins can reach it (ownership is gone with the row).
func (s *AuditService) ListForItem(ctx context.Context, actor *models.Actor, itemID string, limit int) ([]*models.VaultAuditLogEntry, error) {
	if limit <= 0 || limit > defaultAuditLimit {
		limit = defaultAuditLimit
	}

	item, err := s.repos.Items(s.db).GetByID(ctx, itemID)
	switch {
	case err == nil:
		if err := requireOwnerOrAdmin(item, actor); err != nil {
			return nil, err
		}
	case errors.Is(err, common.ErrorNotFound) && actor.Admin:
		// item gone, audit survives
	default:
		return nil, err
	}

	return s.repos.Audit(s.db).ListForItem(ctx, itemID, limit)
}

// ListRecent returns the newest entries across all items. Admin only.
func (s *AuditService) ListRecent(ctx context.Context, actor *models.Actor, limit int) ([]*models.VaultAuditLogEntry, error) {
	if !actor.Admin {
		return nil, common.ErrorPermissionDenied
	}
	if limit <= 0 || limit > defaultAuditLimit {
		limit = defaultAuditLimit
	}
	return s.repos.Audit(s.db).ListRecent(ctx, limit)
}
