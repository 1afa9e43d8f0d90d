package audit

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns a stable, non-reversible identifier for a token so it
// can be correlated in the audit log without storing the token itself.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
