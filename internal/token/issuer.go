package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/darmiel/idgate/internal/core"
)

// DefaultTTL is the lifetime of tokens minted by the local login path.
const DefaultTTL = 14 * 24 * time.Hour

// Options configures both the Issuer and the Validator.
type Options struct {
	// Key is the symmetric HMAC-SHA-256 key.
	Key []byte

	Issuer   string
	Audience string

	// TTL is used when Issue is called with a non-positive ttl.
	TTL time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

func (o Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Issuer mints HS256 tokens for identities.
type Issuer struct {
	opts Options
}

// NewIssuer returns an Issuer, or ErrMissingKey if no signing key is configured.
func NewIssuer(opts Options) (*Issuer, error) {
	if len(opts.Key) == 0 {
		return nil, ErrMissingKey
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Issuer{opts: opts}, nil
}

// Issue mints a token for identity valid for ttl from now.
func (i *Issuer) Issue(identity *core.Identity, ttl time.Duration) (*core.Token, error) {
	if identity == nil || identity.SubjectID == "" {
		return nil, fmt.Errorf("cannot issue token without subject")
	}
	if ttl <= 0 {
		ttl = i.opts.TTL
	}

	now := i.opts.now()
	exp := now.Add(ttl)
	roles := core.NormalizeRoles(identity.Roles)

	claims := Claims{
		Email: identity.Email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.SubjectID,
			Issuer:    i.opts.Issuer,
			Audience:  jwt.ClaimStrings{i.opts.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.opts.Key)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &core.Token{
		Value:     signed,
		ID:        claims.ID,
		Issuer:    i.opts.Issuer,
		Audience:  i.opts.Audience,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		Identity: core.Identity{
			SubjectID: identity.SubjectID,
			Email:     identity.Email,
			Roles:     roles,
		},
	}, nil
}
