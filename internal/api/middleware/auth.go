package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/idgate/internal/api/presenter"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
	"github.com/darmiel/idgate/internal/telemetry"
	"github.com/darmiel/idgate/internal/token"
)

// TokenExpiredHeader is set on responses whose bearer token had expired.
const TokenExpiredHeader = "Token-Expired"

type claimsKey struct{}

// ClaimsFrom returns the claims of the validated bearer token, or nil.
func ClaimsFrom(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(claimsKey{}).(*token.Claims)
	return c
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// Authenticate validates the bearer token if one is present.
// Requests without a valid token continue anonymously, the policy
// middleware decides whether that is enough.
func Authenticate(validator *token.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := log.Ctx(ctx)

			claims, err := validator.Parse(raw, time.Time{})
			if err != nil {
				reason := "invalid"
				if errors.Is(err, token.ErrExpired) {
					reason = "expired"
					w.Header().Set(TokenExpiredHeader, "true")
				}
				telemetry.TokenValidationFailures.WithLabelValues(reason).Inc()
				logger.Debug().Err(err).Str("reason", reason).Msg("bearer token rejected")

				next.ServeHTTP(w, r.WithContext(core.WithAuthFailure(ctx, err)))
				return
			}

			identity := claims.Identity()
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("sub", identity.SubjectID)
			})

			ctx = core.WithIdentity(ctx, identity)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePolicies admits a request only if every named policy admits its identity.
// Policies are evaluated in order. A denied anonymous request gets 401, a denied
// authenticated one 403. Unknown policy names are rejected here, not per request.
func RequirePolicies(registry *engine.Registry, names ...string) (func(http.Handler) http.Handler, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one policy is required")
	}
	if err := registry.Require(names...); err != nil {
		return nil, fmt.Errorf("binding route policies: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := core.IdentityFrom(r.Context())

			denied, ok := registry.AuthorizeAll(identity, names...)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			status, msg := http.StatusForbidden, "forbidden"
			if !identity.Authenticated() {
				status, msg = http.StatusUnauthorized, "unauthenticated"
			}
			telemetry.AuthorizationDenials.WithLabelValues(denied, fmt.Sprint(status)).Inc()
			log.Ctx(r.Context()).Info().
				Str("policy", denied).
				Int("status", status).
				Msg("request denied by policy")

			presenter.Error(w, r, msg, status)
		})
	}, nil
}
