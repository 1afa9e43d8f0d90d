package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "Bearer", want: ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, BearerToken(r), "header %q", tt.header)
	}
}

func TestRequirePolicies_UnknownPolicy(t *testing.T) {
	reg, err := engine.NewDefaultRegistry()
	require.NoError(t, err)

	_, err = RequirePolicies(reg, core.PolicyUser, "DoesNotExist")
	assert.ErrorIs(t, err, engine.ErrUnknownPolicy)

	_, err = RequirePolicies(reg)
	assert.Error(t, err)
}

func TestRequirePolicies(t *testing.T) {
	reg, err := engine.NewDefaultRegistry()
	require.NoError(t, err)

	mw, err := RequirePolicies(reg, core.PolicyAnyAuthenticatedUser, core.PolicyAdmin)
	require.NoError(t, err)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		identity *core.Identity
		want     int
	}{
		{name: "anonymous", identity: nil, want: http.StatusUnauthorized},
		{name: "empty subject is anonymous", identity: core.NewIdentity("", "x@example.com", core.RoleAdmin), want: http.StatusUnauthorized},
		{name: "user", identity: core.NewIdentity("u", "u@example.com", core.RoleUser), want: http.StatusForbidden},
		{name: "admin", identity: core.NewIdentity("a", "a@example.com", core.RoleAdmin), want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = r.WithContext(core.WithIdentity(r.Context(), tt.identity))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
