package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/darmiel/idgate/internal/audit"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
	"github.com/darmiel/idgate/internal/store"
	"github.com/darmiel/idgate/internal/telemetry"
	"github.com/darmiel/idgate/internal/token"
	"github.com/darmiel/idgate/internal/validation"
)

// ErrUpstreamUnavailable is the client-facing cause of a failed delegated login.
var ErrUpstreamUnavailable = errors.New("upstream identity provider unavailable")

// Delegate authenticates against an external identity provider.
type Delegate interface {
	Authenticate(ctx context.Context, login, password string) (*core.DelegatedLoginResult, error)
}

// AuthService implements login, registration and policy explanation.
type AuthService struct {
	store     core.CredentialStore
	issuer    *token.Issuer
	validator *token.Validator
	policies  *engine.Registry
	delegate  Delegate
	auditor   core.Auditor
	ttl       time.Duration
}

type Options struct {
	Store     core.CredentialStore
	Issuer    *token.Issuer
	Validator *token.Validator
	Policies  *engine.Registry

	// Delegate is optional, delegated logins fail with 501 without it.
	Delegate Delegate

	// Auditor defaults to a noop auditor.
	Auditor core.Auditor

	// TTL of locally issued tokens, token.DefaultTTL if zero.
	TTL time.Duration
}

func NewAuthService(opts Options) *AuthService {
	if opts.Auditor == nil {
		opts.Auditor = audit.NewNoopAuditor()
	}
	if opts.TTL <= 0 {
		opts.TTL = token.DefaultTTL
	}
	return &AuthService{
		store:     opts.Store,
		issuer:    opts.Issuer,
		validator: opts.Validator,
		policies:  opts.Policies,
		delegate:  opts.Delegate,
		auditor:   opts.Auditor,
		ttl:       opts.TTL,
	}
}

func (s *AuthService) newAuditEntry(ctx context.Context, action string) core.AuditEntry {
	return core.AuditEntry{
		ID:     core.CorrelationID(ctx),
		Time:   time.Now(),
		Action: action,
	}
}

func (s *AuthService) writeAudit(ctx context.Context, entry *core.AuditEntry) {
	if err := s.auditor.Log(*entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log entry")
	}
}

// Login verifies local credentials and issues a token.
// Unknown accounts and wrong passwords both yield 404.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (resp *LoginResponse, err error) {
	logger := log.Ctx(ctx)

	ctx, span := telemetry.StartSpan(ctx, "auth.Login", attribute.String(telemetry.AttrLoginMode, "local"))
	defer span.End()

	entry := s.newAuditEntry(ctx, core.ActionLogin)
	entry.Email = req.Email
	defer func() {
		entry.Success = err == nil
		telemetry.LoginsTotal.WithLabelValues("local", outcome(err)).Inc()
		telemetry.RecordError(span, err)
		s.writeAudit(ctx, &entry)
	}()

	if err := validation.Struct(req); err != nil {
		entry.Error = "validation failed"
		return nil, httpError(http.StatusBadRequest, err)
	}

	acc, err := s.store.Verify(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) || errors.Is(err, store.ErrInvalidPassword) {
			entry.Error = "credentials rejected"
			entry.Detail = err.Error()
			logger.Info().Err(err).Msg("local login rejected")
			return nil, httpError(http.StatusNotFound, errors.New("not found"))
		}
		entry.Error = "credential store error"
		entry.Detail = err.Error()
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("verifying credentials: %w", err))
	}

	identity := acc.Identity()
	entry.Subject = identity.SubjectID
	entry.Roles = identity.Roles
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", identity.SubjectID)
	})
	span.SetAttributes(attribute.String(telemetry.AttrSubject, identity.SubjectID))

	tok, err := s.issuer.Issue(identity, s.ttl)
	if err != nil {
		entry.Error = "issuing failed"
		entry.Detail = err.Error()
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("issuing token: %w", err))
	}
	entry.Metadata = map[string]any{
		"fingerprint": audit.Fingerprint(tok.Value),
		"jti":         tok.ID,
		"expires_at":  tok.ExpiresAt,
	}

	return &LoginResponse{Token: tok.Value}, nil
}

// DelegatedLogin forwards the credentials to the external identity provider.
// Whatever the provider answers is returned as is. Only an exhausted retry
// budget is an error.
func (s *AuthService) DelegatedLogin(ctx context.Context, req DelegatedLoginRequest) (res *core.DelegatedLoginResult, err error) {
	entry := s.newAuditEntry(ctx, core.ActionDelegatedLogin)
	entry.Email = req.Login
	defer func() {
		entry.Success = err == nil && res != nil && res.Status >= 200 && res.Status < 300
		label := outcome(err)
		if err == nil && !entry.Success {
			label = "rejected"
		}
		telemetry.LoginsTotal.WithLabelValues("delegated", label).Inc()
		s.writeAudit(ctx, &entry)
	}()

	if err := validation.Struct(req); err != nil {
		entry.Error = "validation failed"
		return nil, httpError(http.StatusBadRequest, err)
	}
	if s.delegate == nil {
		entry.Error = "delegated login not configured"
		return nil, httpError(http.StatusNotImplemented, errors.New("delegated login is not configured"))
	}

	res, err = s.delegate.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		entry.Error = ErrUpstreamUnavailable.Error()
		entry.Detail = err.Error()
		log.Ctx(ctx).Error().Err(err).Msg("delegated login failed after retries")
		return nil, httpError(http.StatusBadGateway, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
	}

	entry.Metadata = map[string]any{"upstream_status": res.Status}
	return res, nil
}

// Register creates a new account with the default role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (resp *RegisterResponse, err error) {
	entry := s.newAuditEntry(ctx, core.ActionRegister)
	entry.Email = req.Email
	defer func() {
		entry.Success = err == nil
		s.writeAudit(ctx, &entry)
	}()

	if err := validation.Struct(req); err != nil {
		entry.Error = "validation failed"
		return nil, httpError(http.StatusBadRequest, err)
	}

	acc, err := s.store.Register(ctx, core.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Address:   req.Address,
	})
	if err != nil {
		entry.Detail = err.Error()

		var policyErr *store.PasswordPolicyError
		switch {
		case errors.As(err, &policyErr):
			entry.Error = "password rejected"
			fields := validation.FieldErrors{}
			for _, p := range policyErr.Problems {
				fields.Add("password", p)
			}
			return nil, httpError(http.StatusBadRequest, fields)
		case errors.Is(err, store.ErrDuplicateEmail):
			entry.Error = "duplicate email"
			fields := validation.FieldErrors{}
			fields.Add("email", fmt.Sprintf("Email '%s' is already taken.", req.Email))
			return nil, httpError(http.StatusBadRequest, fields)
		default:
			entry.Error = "credential store error"
			return nil, httpError(http.StatusInternalServerError, fmt.Errorf("registering account: %w", err))
		}
	}

	entry.Subject = acc.ID
	entry.Roles = acc.Roles

	role := core.RoleUser
	if len(acc.Roles) > 0 {
		role = acc.Roles[0]
	}
	return &RegisterResponse{ID: acc.ID, Email: acc.Email, Role: role}, nil
}

// Profile returns the account of the given subject.
func (s *AuthService) Profile(ctx context.Context, subjectID string) (*ProfileResponse, error) {
	acc, err := s.store.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, httpError(http.StatusNotFound, errors.New("account not found"))
		}
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("loading account: %w", err))
	}
	return &ProfileResponse{
		ID:        acc.ID,
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
		Email:     acc.Email,
		Address:   acc.Address,
		Roles:     acc.Roles,
	}, nil
}

// Explain validates the token and traces the requested policies against it.
// An expired or invalid token is traced as anonymous.
func (s *AuthService) Explain(ctx context.Context, req ExplainRequest) (*core.EvaluationTrace, error) {
	logger := log.Ctx(ctx)

	if err := validation.Struct(req); err != nil {
		return nil, httpError(http.StatusBadRequest, err)
	}
	if err := s.policies.Require(req.Policies...); err != nil {
		return nil, httpError(http.StatusBadRequest, err)
	}

	identity, err := s.validator.Validate(req.Token, time.Time{})
	if err != nil {
		logger.Debug().Err(err).Msg("explained token did not validate, tracing as anonymous")
		identity = nil
	}

	trace := s.policies.Trace(identity, req.Policies...)
	trace.CorrelationID = core.CorrelationID(ctx)
	return &trace, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch StatusOf(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "rejected"
	default:
		return "error"
	}
}

func asHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
