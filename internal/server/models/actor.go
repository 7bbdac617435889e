package models

// Actor is the authenticated caller as asserted by the external identity
// provider via JWT claims. The vault does not manage accounts itself.
type Actor struct {
	ID    string
	Name  string
	Email string
	Admin bool
}

// Origin captures request provenance for audit entries.
type Origin struct {
	IP        string
	UserAgent string
}
