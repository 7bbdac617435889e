package models

import "time"

// AuditAction enumerates the recordable vault operations.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionReveal AuditAction = "reveal"
	AuditActionShare  AuditAction = "share"
	AuditActionRevoke AuditAction = "revoke"
)

// VaultAuditLogEntry is one append-only audit record. VaultItemID is a soft
// reference: entries outlive the item they describe. Actor name and email
// are snapshotted at write time so history stays readable after profile
// changes or deletion. Details never contain secret material.
type VaultAuditLogEntry struct {
	ID          string
	VaultItemID string
	ActorID     string
	ActorName   string
	ActorEmail  string
	Action      AuditAction
	Details     map[string]any
	IP          string
	UserAgent   string
	CreatedAt   time.Time
}
