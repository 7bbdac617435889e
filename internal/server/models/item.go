// Package models defines the persistence-level types shared by repositories
// and services.
package models

import "time"

// ItemType classifies what kind of credential a vault item holds.
type ItemType string

const (
	ItemTypeServer        ItemType = "server"
	ItemTypeWebsite       ItemType = "website"
	ItemTypeNetworkDevice ItemType = "network_device"
	ItemTypeApplication   ItemType = "application"
	ItemTypeAPIKey        ItemType = "api_key"
	ItemTypeOther         ItemType = "other"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeServer, ItemTypeWebsite, ItemTypeNetworkDevice,
		ItemTypeApplication, ItemTypeAPIKey, ItemTypeOther:
		return true
	}
	return false
}

// VaultItem is a credential record. Ciphertext and IV are stored as text in
// one of the historical encodings (canonical lowercase hex for new rows);
// both are empty for a metadata-only item. The owner is immutable once set.
type VaultItem struct {
	ID                string
	Title             string
	Type              ItemType
	Username          string
	URL               string
	Ciphertext        string
	IV                string
	OwnerID           string
	Tags              []string
	Requires2FAReveal bool
	RevealCount       int64
	LastRevealAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasSecret reports whether the item carries an encrypted secret.
func (i *VaultItem) HasSecret() bool {
	return i.Ciphertext != "" && i.IV != ""
}
