package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/idgate/internal/core"
)

// Claim names used in minted tokens.
const (
	ClaimSubject  = "sub"
	ClaimEmail    = "email"
	ClaimRole     = "role"
	ClaimIssuer   = "iss"
	ClaimAudience = "aud"
	ClaimIssuedAt = "iat"
	ClaimExpires  = "exp"
	ClaimID       = "jti"
)

// Claims is the payload of an idgate token.
// Roles are serialized as a JSON array so that each role is its own claim entry.
type Claims struct {
	Email string           `json:"email,omitempty"`
	Roles jwt.ClaimStrings `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity extracts the identity carried by the claims.
func (c *Claims) Identity() *core.Identity {
	return core.NewIdentity(c.Subject, c.Email, c.Roles...)
}

// List flattens the claims into type/value pairs, one entry per role.
func (c *Claims) List() []core.Claim {
	out := make([]core.Claim, 0, 8+len(c.Roles))
	add := func(typ, value string) {
		if value != "" {
			out = append(out, core.Claim{Type: typ, Value: value})
		}
	}

	add(ClaimSubject, c.Subject)
	add(ClaimEmail, c.Email)
	for _, r := range c.Roles {
		add(ClaimRole, r)
	}
	add(ClaimID, c.ID)
	add(ClaimIssuer, c.Issuer)
	for _, a := range c.Audience {
		add(ClaimAudience, a)
	}
	if c.IssuedAt != nil {
		add(ClaimIssuedAt, formatUnix(c.IssuedAt))
	}
	if c.ExpiresAt != nil {
		add(ClaimExpires, formatUnix(c.ExpiresAt))
	}
	return out
}
