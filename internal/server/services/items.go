package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/cryptox"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/repositories/repomanager"
)

// ItemService is the secret store: CRUD over vault items. Plaintext secrets
// are encrypted on the way in and never persisted, logged, or echoed back.
type ItemService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	engine *cryptox.Engine
	logger logging.Logger
}

func NewItemService(db *sql.DB, repos repomanager.RepositoryManager, engine *cryptox.Engine, logger logging.Logger) *ItemService {
	return &ItemService{
		db:     db,
		repos:  repos,
		engine: engine,
		logger: logger.With("module", "items"),
	}
}

// CreateItemInput carries the fields for a new vault item. Secret is the
// optional plaintext; it lives only for the duration of the call.
type CreateItemInput struct {
	Title             string
	Type              models.ItemType
	Username          string
	URL               string
	Tags              []string
	Requires2FAReveal bool
	Secret            *string
}

// UpdateItemInput is a metadata patch. Nil fields are left unchanged.
// A non-nil Secret replaces ciphertext and IV together in one re-encrypt;
// an AEAD payload is never partially patched.
type UpdateItemInput struct {
	Title             *string
	Type              *models.ItemType
	Username          *string
	URL               *string
	Tags              []string
	Requires2FAReveal *bool
	Secret            *string
}

// Create stores a new item owned by the actor, encrypting the secret if one
// was supplied, and writes a create audit entry.
func (s *ItemService) Create(ctx context.Context, actor *models.Actor, origin models.Origin, input CreateItemInput) (*models.VaultItem, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown item type %q", common.ErrorValidation, input.Type)
	}

	item := &models.VaultItem{
		ID:                uuid.New().String(),
		Title:             input.Title,
		Type:              input.Type,
		Username:          input.Username,
		URL:               input.URL,
		OwnerID:           actor.ID,
		Tags:              input.Tags,
		Requires2FAReveal: input.Requires2FAReveal,
	}

	if input.Secret != nil {
		ciphertext, iv, err := s.engine.Encrypt(*input.Secret)
		if err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
		item.Ciphertext = ciphertext
		item.IV = iv
	}

	err := withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repos.Items(tx).Create(ctx, item); err != nil {
			return err
		}
		entry := newAuditEntry(item.ID, actor, origin, models.AuditActionCreate, map[string]any{
			"title":      item.Title,
			"type":       item.Type,
			"has_secret": item.HasSecret(),
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "item created", "item_id", item.ID, "owner_id", actor.ID)
	return item, nil
}

// Update applies a metadata patch and, when a new secret is supplied,
// atomically replaces the ciphertext/IV pair. Owner or admin only.
func (s *ItemService) Update(ctx context.Context, actor *models.Actor, origin models.Origin, id string, patch UpdateItemInput) (*models.VaultItem, error) {
	item, err := s.repos.Items(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(item, actor); err != nil {
		return nil, err
	}

	changed := []string{}
	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
		}
		item.Title = *patch.Title
		changed = append(changed, "title")
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown item type %q", common.ErrorValidation, *patch.Type)
		}
		item.Type = *patch.Type
		changed = append(changed, "type")
	}
	if patch.Username != nil {
		item.Username = *patch.Username
		changed = append(changed, "username")
	}
	if patch.URL != nil {
		item.URL = *patch.URL
		changed = append(changed, "url")
	}
	if patch.Tags != nil {
		item.Tags = patch.Tags
		changed = append(changed, "tags")
	}
	if patch.Requires2FAReveal != nil {
		item.Requires2FAReveal = *patch.Requires2FAReveal
		changed = append(changed, "requires_2fa_reveal")
	}

	rotated := false
	if patch.Secret != nil {
		ciphertext, iv, err := s.engine.Encrypt(*patch.Secret)
		if err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
		item.Ciphertext = ciphertext
		item.IV = iv
		rotated = true
	}

	err = withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Items(tx).Update(ctx, item); err != nil {
			return err
		}
		entry := newAuditEntry(item.ID, actor, origin, models.AuditActionUpdate, map[string]any{
			"title":          item.Title,
			"changed_fields": changed,
			"rotated_secret": rotated,
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "item updated", "item_id", item.ID, "actor_id", actor.ID, "rotated_secret", rotated)
	return item, nil
}

// Delete removes the item. Grant rows cascade with the item; audit entries
// referencing it are retained.
func (s *ItemService) Delete(ctx context.Context, actor *models.Actor, origin models.Origin, id string) error {
	item, err := s.repos.Items(s.db).GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwnerOrAdmin(item, actor); err != nil {
		return err
	}

	err = withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Items(tx).Delete(ctx, id); err != nil {
			return err
		}
		entry := newAuditEntry(id, actor, origin, models.AuditActionDelete, map[string]any{
			"title": item.Title,
			"type":  item.Type,
		})
		return s.repos.Audit(tx).Insert(ctx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "item deleted", "item_id", id, "actor_id", actor.ID)
	return nil
}

// Get returns the item when the actor holds at least view_metadata access.
// The ciphertext never leaves the service boundary toward the UI; the API
// layer serializes metadata only.
func (s *ItemService) Get(ctx context.Context, actor *models.Actor, id string) (*models.VaultItem, error) {
	item, err := s.repos.Items(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cap, err := resolveCapability(ctx, s.repos.Permissions(s.db), item, actor)
	if err != nil {
		return nil, err
	}
	if !cap.CanViewMetadata() {
		return nil, common.ErrorPermissionDenied
	}
	return item, nil
}

// List returns the items visible to the actor: owned plus granted, or all
// for admins.
func (s *ItemService) List(ctx context.Context, actor *models.Actor) ([]*models.VaultItem, error) {
	return s.repos.Items(s.db).ListForActor(ctx, actor.ID, actor.Admin)
}

// requireOwnerOrAdmin guards the mutation paths: grants never confer write
// access, whatever their level.
func requireOwnerOrAdmin(item *models.VaultItem, actor *models.Actor) error {
	if actor.ID == item.OwnerID || actor.Admin {
		return nil
	}
	return common.ErrorPermissionDenied
}
