package core

import (
	"slices"
	"time"
)

// Well-known role names.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Identity is the authenticated subject a token speaks for.
// It is sourced from the credential store at login time and never changes
// for the lifetime of the token minted from it.
type Identity struct {
	// SubjectID is the opaque account identifier (the "sub" claim).
	SubjectID string `json:"sub" yaml:"sub"`

	// Email of the account.
	Email string `json:"email" yaml:"email"`

	// Roles granted to the account. Treated as a set.
	Roles []string `json:"roles" yaml:"roles"`
}

// NewIdentity returns an Identity with a normalized role set.
func NewIdentity(subjectID, email string, roles ...string) *Identity {
	return &Identity{
		SubjectID: subjectID,
		Email:     email,
		Roles:     NormalizeRoles(roles),
	}
}

// Authenticated reports whether the identity represents a validated caller.
// A nil identity is anonymous.
func (i *Identity) Authenticated() bool {
	return i != nil && i.SubjectID != ""
}

// HasRole reports whether the identity carries the given role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// HasAnyRole reports whether the identity's role set intersects roles.
func (i *Identity) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}

// Attributes flattens the identity into the attribute map that policy
// conditions and expressions are evaluated against.
func (i *Identity) Attributes() map[string]any {
	if i == nil {
		return map[string]any{}
	}
	return map[string]any{
		"sub":   i.SubjectID,
		"email": i.Email,
		"roles": slices.Clone(i.Roles),
	}
}

// NormalizeRoles drops empty and duplicate role names, keeping the first occurrence order.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Token is a signed, time-bounded assertion minted for an Identity.
type Token struct {
	// Value is the compact serialized token.
	Value string `json:"token"`

	// ID is the unique token identifier ("jti").
	ID string `json:"id"`

	Issuer    string    `json:"issuer"`
	Audience  string    `json:"audience"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Identity Identity `json:"identity"`
}

// Claim is a single named fact carried by a token.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Account is a registered user in the credential store.
type Account struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Address      string    `json:"address,omitempty"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash []byte    `json:"-"`
}

// Identity returns the identity a token for this account would carry.
func (a *Account) Identity() *Identity {
	return NewIdentity(a.ID, a.Email, a.Roles...)
}

// Registration holds everything needed to create a new Account.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Address   string
	Roles     []string
}

// TokenEnvelope is the token body returned by an external identity provider.
type TokenEnvelope struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// DelegatedLoginResult is the pass-through result of a delegated login.
// Status is the provider's HTTP status code, relayed verbatim.
type DelegatedLoginResult struct {
	Envelope TokenEnvelope
	Status   int
}
