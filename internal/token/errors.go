package token

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned when a well-formed, correctly signed token is used
	// outside its validity window.
	ErrExpired = errors.New("token expired")

	// ErrInvalid is returned for malformed tokens and signature, issuer or audience mismatches.
	ErrInvalid = errors.New("token invalid")

	// ErrMissingKey is returned when an issuer or validator is built without a signing key.
	ErrMissingKey = errors.New("signing key must not be empty")
)

// ValidationError describes why a token was rejected.
// Kind is either ErrExpired or ErrInvalid.
type ValidationError struct {
	Kind error
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == e.Kind
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	return &ValidationError{Kind: ErrInvalid, Err: err}
}

func expired(err error) error {
	return &ValidationError{Kind: ErrExpired, Err: err}
}

func formatUnix(d *jwt.NumericDate) string {
	return strconv.FormatInt(d.Unix(), 10)
}
