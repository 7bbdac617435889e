// Package services contains the vault's business logic: the secret store,
// sharing manager, reveal protocol, settings, and audit queries. Services
// hold no per-request state; the database is the only shared mutable state.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/dbx"
	"github.com/stackdeck/credvault/internal/server/access"
	"github.com/stackdeck/credvault/internal/server/models"
	"github.com/stackdeck/credvault/internal/server/repositories/permissions"
)

// Seams for tests.
var (
	timeNow = time.Now
	withTx  = dbx.WithTx
)

// newAuditEntry builds an audit record with the actor identity snapshotted
// at write time. Details must never contain secret material.
func newAuditEntry(itemID string, actor *models.Actor, origin models.Origin, action models.AuditAction, details map[string]any) *models.VaultAuditLogEntry {
	return &models.VaultAuditLogEntry{
		ID:          uuid.New().String(),
		VaultItemID: itemID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorEmail:  actor.Email,
		Action:      action,
		Details:     details,
		IP:          origin.IP,
		UserAgent:   origin.UserAgent,
	}
}

// resolveCapability computes the actor's effective access to item, looking
// up the explicit grant row only when the owner/admin capabilities do not
// already decide the outcome. Called fresh on every request.
func resolveCapability(ctx context.Context, perms permissions.Repository, item *models.VaultItem, actor *models.Actor) (access.Capability, error) {
	if actor.ID == item.OwnerID || actor.Admin {
		return access.Resolve(item, actor, nil), nil
	}

	grant, err := perms.Get(ctx, item.ID, actor.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return access.Resolve(item, actor, nil), nil
		}
		return access.Capability{}, err
	}
	return access.Resolve(item, actor, grant), nil
}
