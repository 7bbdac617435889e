// Package access computes effective access to vault items. The owner/admin
// bypass of the grant table is expressed as a capability with tagged
// variants feeding a single level, so no call site duplicates the
// owner/admin logic.
//
// Resolution is a pure function over the current item, actor, and grant row;
// nothing is memoized, so a revoke binds on the very next check.
package access

import (
	"github.com/stackdeck/credvault/internal/server/models"
)

// Level is the effective access an actor holds on an item.
type Level int

const (
	LevelNone Level = iota
	LevelViewMetadata
	LevelViewSecret
)

func (l Level) String() string {
	switch l {
	case LevelViewMetadata:
		return "view_metadata"
	case LevelViewSecret:
		return "view_secret"
	default:
		return "none"
	}
}

// Source identifies which capability produced the level.
type Source int

const (
	SourceNone Source = iota
	SourceOwner
	SourceAdmin
	SourceGrant
)

func (s Source) String() string {
	switch s {
	case SourceOwner:
		return "owner"
	case SourceAdmin:
		return "admin"
	case SourceGrant:
		return "grant"
	default:
		return "none"
	}
}

// Capability is the resolved access decision for one (item, actor) pair.
type Capability struct {
	Source Source
	Level  Level
}

// CanViewMetadata reports whether the capability allows reading item metadata.
func (c Capability) CanViewMetadata() bool { return c.Level >= LevelViewMetadata }

// CanViewSecret reports whether the capability allows revealing the secret.
func (c Capability) CanViewSecret() bool { return c.Level >= LevelViewSecret }

// Resolve computes the capability of actor on item. grant is the explicit
// (item, actor) permission row, or nil when none exists; it is only
// consulted when the actor is neither the owner nor an admin.
func Resolve(item *models.VaultItem, actor *models.Actor, grant *models.VaultPermission) Capability {
	if actor.ID == item.OwnerID {
		return Capability{Source: SourceOwner, Level: LevelViewSecret}
	}
	if actor.Admin {
		return Capability{Source: SourceAdmin, Level: LevelViewSecret}
	}
	if grant != nil {
		return Capability{Source: SourceGrant, Level: levelOf(grant.PermissionLevel)}
	}
	return Capability{Source: SourceNone, Level: LevelNone}
}

func levelOf(l models.PermissionLevel) Level {
	switch l {
	case models.PermissionViewSecret:
		return LevelViewSecret
	case models.PermissionViewMetadata:
		return LevelViewMetadata
	default:
		return LevelNone
	}
}
