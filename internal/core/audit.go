package core

import "time"

// Audit actions.
const (
	ActionLogin          = "auth.login"
	ActionDelegatedLogin = "auth.login.delegated"
	ActionRegister       = "auth.register"
)

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "auth.login")
	Action string `json:"action"`

	// Subject and Email identify the account involved, if known
	Subject string   `json:"subject,omitempty"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`

	Success bool `json:"success"`

	// Error is a short, client-safe description of the failure.
	Error string `json:"error,omitempty"`
	// Detail holds the full internal error.
	Detail string `json:"detail,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}
