package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/idgate/internal/core"
)

// Validator verifies tokens minted by an Issuer sharing the same Options.
type Validator struct {
	opts   Options
	parser *jwt.Parser
}

// NewValidator returns a Validator, or ErrMissingKey if no signing key is configured.
func NewValidator(opts Options) (*Validator, error) {
	if len(opts.Key) == 0 {
		return nil, ErrMissingKey
	}
	return &Validator{
		opts: opts,
		// claims are checked by hand so that issuer and audience take precedence over the clock
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Validate verifies raw at the given instant and returns the identity it carries.
// A zero now means the validator's clock.
func (v *Validator) Validate(raw string, now time.Time) (*core.Identity, error) {
	claims, err := v.Parse(raw, now)
	if err != nil {
		return nil, err
	}
	return claims.Identity(), nil
}

// Parse is like Validate but returns the full claim set.
func (v *Validator) Parse(raw string, now time.Time) (*Claims, error) {
	if raw == "" {
		return nil, invalid(errors.New("empty token"))
	}
	if now.IsZero() {
		now = v.opts.now()
	}

	var claims Claims
	if _, err := v.parser.ParseWithClaims(raw, &claims, v.keyFunc); err != nil {
		return nil, invalid(err)
	}

	if claims.Issuer != v.opts.Issuer {
		return nil, invalid(fmt.Errorf("unexpected issuer '%s'", claims.Issuer))
	}
	if !slices.Contains(claims.Audience, v.opts.Audience) {
		return nil, invalid(fmt.Errorf("audience %v does not include '%s'", []string(claims.Audience), v.opts.Audience))
	}
	if claims.Subject == "" {
		return nil, invalid(errors.New("missing subject"))
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, invalid(errors.New("missing iat or exp"))
	}

	// zero clock skew: the window is [iat, exp] inclusive
	if now.Before(claims.IssuedAt.Time) {
		return nil, expired(fmt.Errorf("used before issued (iat %s)", claims.IssuedAt.Time.Format(time.RFC3339)))
	}
	if now.After(claims.ExpiresAt.Time) {
		return nil, expired(fmt.Errorf("expired at %s", claims.ExpiresAt.Time.Format(time.RFC3339)))
	}

	return &claims, nil
}

func (v *Validator) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return v.opts.Key, nil
}
