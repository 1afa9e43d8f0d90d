package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/darmiel/idgate/internal/audit"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
	"github.com/darmiel/idgate/internal/store"
	"github.com/darmiel/idgate/internal/token"
	"github.com/darmiel/idgate/internal/validation"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, delegate Delegate) (*AuthService, *audit.InMemoryAuditor) {
	t.Helper()

	opts := token.Options{
		Key:      []byte("service-test-key-service-test-key"),
		Issuer:   "idgate",
		Audience: "idgate-api",
		Clock:    func() time.Time { return now },
	}
	iss, err := token.NewIssuer(opts)
	require.NoError(t, err)
	val, err := token.NewValidator(opts)
	require.NoError(t, err)
	reg, err := engine.NewDefaultRegistry()
	require.NoError(t, err)
	st, err := store.NewInMemoryCredentialStore(store.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	auditor := audit.NewInMemoryAuditor(0)
	return NewAuthService(Options{
		Store:     st,
		Issuer:    iss,
		Validator: val,
		Policies:  reg,
		Delegate:  delegate,
		Auditor:   auditor,
		TTL:       time.Hour,
	}), auditor
}

func register(t *testing.T, svc *AuthService, email string) *RegisterResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  "hunter22",
		Address:   "Somewhere 1",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_LoginIssuesToken(t *testing.T) {
	svc, _ := newService(t, nil)
	acc := register(t, svc, "jane@example.com")

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "hunter22"})
	require.NoError(t, err)

	id, err := svc.validator.Validate(resp.Token, now.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id.SubjectID)
	assert.Equal(t, []string{core.RoleUser}, id.Roles)

	_, err = svc.validator.Validate(resp.Token, now.Add(time.Hour+time.Second))
	assert.ErrorIs(t, err, token.ErrExpired)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newService(t, nil)
	register(t, svc, "jane@example.com")

	_, errUnknown := svc.Login(context.Background(), LoginRequest{Email: "joe@example.com", Password: "hunter22"})
	_, errWrong := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "hunter23"})

	assert.Equal(t, http.StatusNotFound, StatusOf(errUnknown))
	assert.Equal(t, http.StatusNotFound, StatusOf(errWrong))
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestAuthService_RegisterErrors(t *testing.T) {
	svc, auditor := newService(t, nil)
	register(t, svc, "jane@example.com")

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "J", LastName: "D", Email: "jane@example.com", Password: "hunter22", Address: "x",
	})
	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "email")
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	entries, err := auditor.Find(func(e core.AuditEntry) bool { return e.Action == core.ActionRegister }, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Success)
	assert.False(t, entries[1].Success)
	assert.Equal(t, "duplicate email", entries[1].Error)
}

func TestAuthService_DelegatedLogin(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, _ := newService(t, nil)
		_, err := svc.DelegatedLogin(context.Background(), DelegatedLoginRequest{Login: "a", Password: "b"})
		assert.Equal(t, http.StatusNotImplemented, StatusOf(err))
	})

	t.Run("exhausted", func(t *testing.T) {
		svc, _ := newService(t, delegateFunc(func() (*core.DelegatedLoginResult, error) {
			return nil, errors.New("boom")
		}))
		_, err := svc.DelegatedLogin(context.Background(), DelegatedLoginRequest{Login: "a", Password: "b"})
		assert.Equal(t, http.StatusBadGateway, StatusOf(err))
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("rejected by provider is not an error", func(t *testing.T) {
		svc, auditor := newService(t, delegateFunc(func() (*core.DelegatedLoginResult, error) {
			return &core.DelegatedLoginResult{Status: http.StatusUnauthorized}, nil
		}))
		res, err := svc.DelegatedLogin(context.Background(), DelegatedLoginRequest{Login: "a", Password: "b"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.Status)

		entries, _ := auditor.GetRecent(1)
		require.Len(t, entries, 1)
		assert.False(t, entries[0].Success)
	})
}

func TestAuthService_ExplainTracesExpiredAsAnonymous(t *testing.T) {
	svc, _ := newService(t, nil)

	tok, err := svc.issuer.Issue(core.NewIdentity("s", "s@example.com", core.RoleAdmin), time.Hour)
	require.NoError(t, err)

	past, err := token.NewIssuer(token.Options{
		Key:      []byte("service-test-key-service-test-key"),
		Issuer:   "idgate",
		Audience: "idgate-api",
		Clock:    func() time.Time { return now.Add(-2 * time.Hour) },
	})
	require.NoError(t, err)
	old, err := past.Issue(core.NewIdentity("s", "s@example.com", core.RoleAdmin), time.Hour)
	require.NoError(t, err)

	trace, err := svc.Explain(context.Background(), ExplainRequest{Token: tok.Value, Policies: []string{core.PolicyAdmin}})
	require.NoError(t, err)
	assert.True(t, trace.FinalDecision)

	trace, err = svc.Explain(context.Background(), ExplainRequest{Token: old.Value, Policies: []string{core.PolicyAdmin}})
	require.NoError(t, err)
	assert.Nil(t, trace.Identity)
	assert.False(t, trace.FinalDecision)
}

type delegateFunc func() (*core.DelegatedLoginResult, error)

func (f delegateFunc) Authenticate(context.Context, string, string) (*core.DelegatedLoginResult, error) {
	return f()
}
