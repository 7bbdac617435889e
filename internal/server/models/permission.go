package models

import "time"

// PermissionLevel is the level carried by an explicit grant.
type PermissionLevel string

const (
	PermissionViewMetadata PermissionLevel = "view_metadata"
	PermissionViewSecret   PermissionLevel = "view_secret"
)

// Valid reports whether l is a known permission level.
func (l PermissionLevel) Valid() bool {
	return l == PermissionViewMetadata || l == PermissionViewSecret
}

// VaultPermission is an explicit grant for one (item, grantee) pair. The
// grantee is never the item's owner; owners hold full access implicitly.
type VaultPermission struct {
	VaultItemID     string
	GranteeID       string
	PermissionLevel PermissionLevel
	GrantedBy       string
	CreatedAt       time.Time
}
