package core

import "context"

// CredentialStore verifies credentials and manages accounts.
type CredentialStore interface {
	// Verify checks the password for the account with the given email
	// and returns the account on success.
	Verify(ctx context.Context, email, password string) (*Account, error)

	// Register creates a new account.
	Register(ctx context.Context, reg Registration) (*Account, error)

	// Get returns the account with the given ID.
	Get(ctx context.Context, id string) (*Account, error)
}

// Auditor records security-relevant events.
type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditReader is implemented by auditors that can be queried.
type AuditReader interface {
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
}
