package models

import "time"

// VaultSettings is the process-wide singleton configuration row. It is read
// fresh on every reveal decision so a toggle takes effect on the very next
// request.
type VaultSettings struct {
	GlobalRevealDisabled  bool
	RevealDurationSeconds int
	UpdatedAt             time.Time
}
