package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stackdeck/credvault/internal/codecx"
	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/cryptox"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/repositories/repomanager"
)

// RevealService implements the disclosure protocol: kill-switch check,
// permission resolution, decryption, counters, and audit — in that order.
// The server keeps no handle to plaintext once it is returned; hiding again
// is the caller's local concern.
type RevealService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	engine *cryptox.Engine
	logger logging.Logger
}

func NewRevealService(db *sql.DB, repos repomanager.RepositoryManager, engine *cryptox.Engine, logger logging.Logger) *RevealService {
	return &RevealService{
		db:     db,
		repos:  repos,
		engine: engine,
		logger: logger.With("module", "reveal"),
	}
}

// RevealResult is the request-scoped disclosure. ExpiresAt is advisory for
// the caller's countdown; nothing server-side tracks it.
type RevealResult struct {
	Plaintext   string
	ExpiresAt   time.Time
	RevealCount int64
}

// Reveal runs the Hidden→Revealed transition. Every attempt, successful or
// not, produces exactly one reveal audit entry; the failure reason is
// recorded, the attempted plaintext never is.
func (s *RevealService) Reveal(ctx context.Context, actor *models.Actor, origin models.Origin, itemID string) (*RevealResult, error) {

	// 1: the kill-switch is evaluated before any permission lookup, so it
	// overrides even the owner. Settings are read fresh on every call.
	settings, err := s.repos.Settings(s.db).Get(ctx)
	if err != nil {
		s.auditFailure(ctx, itemID, actor, origin, "settings unavailable")
		return nil, common.ErrorInternal
	}
	if settings.GlobalRevealDisabled {
		s.auditFailure(ctx, itemID, actor, origin, "reveals disabled")
		return nil, common.ErrorRevealDisabled
	}

	// 2: permission resolution, recomputed per request
	item, err := s.repos.Items(s.db).GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.auditFailure(ctx, itemID, actor, origin, "item not found")
			return nil, common.ErrorNotFound
		}
		s.auditFailure(ctx, itemID, actor, origin, "item lookup failed")
		return nil, common.ErrorInternal
	}

	cap, err := resolveCapability(ctx, s.repos.Permissions(s.db), item, actor)
	if err != nil {
		s.auditFailure(ctx, itemID, actor, origin, "permission lookup failed")
		return nil, common.ErrorInternal
	}
	if !cap.CanViewSecret() {
		s.auditFailure(ctx, itemID, actor, origin, "permission denied")
		return nil, common.ErrorPermissionDenied
	}

	// 3: a metadata-only item has nothing to disclose
	if !item.HasSecret() {
		s.auditFailure(ctx, itemID, actor, origin, "no secret stored")
		return nil, common.ErrorNotFound
	}

	// 4: canonicalize the stored encodings, then decrypt
	ciphertextHex, err := codecx.Normalize(item.Ciphertext)
	if err == nil {
		var ivHex string
		ivHex, err = codecx.Normalize(item.IV)
		if err == nil {
			var plaintext string
			plaintext, err = s.engine.Decrypt(ciphertextHex, ivHex)
			if err == nil {
				return s.finishReveal(ctx, item, actor, origin, cap.Source.String(), plaintext, settings.RevealDurationSeconds)
			}
		}
	}

	// format and crypto failures are forensic events: logged with item and
	// actor ids, never with secret material
	reason := "format error"
	if errors.Is(err, common.ErrCrypto) {
		reason = "decryption failed"
	}
	s.logger.Error(ctx, "reveal failed", "item_id", item.ID, "actor_id", actor.ID, "reason", reason)
	s.auditFailure(ctx, itemID, actor, origin, reason)
	return nil, err
}

// finishReveal runs step 5: counter increment, reveal timestamp, and the
// success audit entry commit together.
func (s *RevealService) finishReveal(ctx context.Context, item *models.VaultItem, actor *models.Actor, origin models.Origin, source, plaintext string, durationSeconds int) (*RevealResult, error) {
	var count int64

	err := withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		count, err = s.repos.Items(tx).RecordReveal(ctx, item.ID)
		if err != nil {
			return err
		}
		entry := newAuditEntry(item.ID, actor, origin, models.AuditActionReveal, map[string]any{
			"outcome":      "success",
			"access_via":   source,
			"reveal_count": count,
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "secret revealed", "item_id", item.ID, "actor_id", actor.ID, "access_via", source)

	return &RevealResult{
		Plaintext:   plaintext,
		ExpiresAt:   timeNow().Add(time.Duration(durationSeconds) * time.Second),
		RevealCount: count,
	}, nil
}

// auditFailure records a denied or failed reveal attempt. A failed audit
// write is logged but does not mask the original error.
func (s *RevealService) auditFailure(ctx context.Context, itemID string, actor *models.Actor, origin models.Origin, reason string) {
	entry := newAuditEntry(itemID, actor, origin, models.AuditActionReveal, map[string]any{
		"outcome": "failure",
		"reason":  reason,
	})
	if err := s.repos.Audit(s.db).Insert(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit write failed", "item_id", itemID, "actor_id", actor.ID, "error", err.Error())
	}
}
