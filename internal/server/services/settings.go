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

const (
	minRevealDurationSeconds = 5
	maxRevealDurationSeconds = 3600
)

// SettingsService reads and mutates the process-wide vault settings row.
type SettingsService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewSettingsService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *SettingsService {
	return &SettingsService{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "settings"),
	}
}

// Get returns the current settings. Any authenticated caller may read them;
// the UI needs the disclosure duration for its countdown.
func (s *SettingsService) Get(ctx context.Context) (*models.VaultSettings, error) {
	return s.repos.Settings(s.db).Get(ctx)
}

// Update replaces the settings. Admin only; takes effect on the very next
// reveal decision since nothing caches the row.
func (s *SettingsService) Update(ctx context.Context, actor *models.Actor, origin models.Origin, updated *models.VaultSettings) error {
	if !actor.Admin {
		return common.ErrorPermissionDenied
	}
	if updated.RevealDurationSeconds < minRevealDurationSeconds || updated.RevealDurationSeconds > maxRevealDurationSeconds {
		return fmt.Errorf("%w: reveal duration must be between %d and %d seconds",
			common.ErrorValidation, minRevealDurationSeconds, maxRevealDurationSeconds)
	}

	err := withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Settings(tx).Update(ctx, updated); err != nil {
			return err
		}
		entry := newAuditEntry("", actor, origin, models.AuditActionUpdate, map[string]any{
			"scope":                   "settings",
			"global_reveal_disabled":  updated.GlobalRevealDisabled,
			"reveal_duration_seconds": updated.RevealDurationSeconds,
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "settings updated",
		"actor_id", actor.ID,
		"global_reveal_disabled", updated.GlobalRevealDisabled,
		"reveal_duration_seconds", updated.RevealDurationSeconds)
	return nil
}
