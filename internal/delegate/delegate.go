// Package delegate authenticates users against an external identity provider
// using the OAuth2 resource owner password grant.
package delegate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/darmiel/idgate/internal/buildinfo"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/retry"
	"github.com/darmiel/idgate/internal/telemetry"
)

const (
	DefaultScope          = "openid profile email"
	DefaultAttemptTimeout = 10 * time.Second

	grantTypePassword = "password"
	maxResponseBytes  = 1 << 20
)

var ErrMalformedResponse = errors.New("malformed provider response")

// Config describes the provider's token endpoint and client credentials.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Audience     string
	Scope        string

	// AttemptTimeout bounds every single call to the provider.
	AttemptTimeout time.Duration
}

func (c Config) Validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("token_url is required")
	}
	if _, err := url.ParseRequestURI(c.TokenURL); err != nil {
		return fmt.Errorf("invalid token_url: %w", err)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return nil
}

// Delegate forwards credentials to the external identity provider.
type Delegate struct {
	cfg        Config
	policy     retry.Policy
	httpClient *http.Client
}

type Option func(*Delegate)

// WithHTTPClient overrides the HTTP client used to reach the provider.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Delegate) {
		d.httpClient = c
	}
}

func New(cfg Config, policy retry.Policy, opts ...Option) (*Delegate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	d := &Delegate{
		cfg:        cfg,
		policy:     policy,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Authenticate exchanges login and password for a provider token.
// Any HTTP status is a result, not an error: the caller gets the decoded body
// and the status verbatim. Only transport failures and undecodable bodies are
// errors, and those are retried according to the retry policy.
func (d *Delegate) Authenticate(ctx context.Context, login, password string) (*core.DelegatedLoginResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "delegate.Authenticate",
		attribute.String(telemetry.AttrLoginMode, "delegated"))
	defer span.End()

	form := d.form(login, password)

	res, err := retry.Do(ctx, d.policy, func(ctx context.Context, attempt int) (*core.DelegatedLoginResult, error) {
		span.SetAttributes(attribute.Int(telemetry.AttrAttempt, attempt))
		return d.exchange(ctx, form)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("password grant against %s: %w", d.cfg.TokenURL, err)
	}
	span.SetAttributes(attribute.Int(telemetry.AttrUpstreamCode, res.Status))
	return res, nil
}

func (d *Delegate) form(login, password string) url.Values {
	return url.Values{
		"grant_type":    {grantTypePassword},
		"username":      {login},
		"password":      {password},
		"client_id":     {d.cfg.ClientID},
		"client_secret": {d.cfg.ClientSecret},
		"audience":      {d.cfg.Audience},
		"scope":         {d.cfg.Scope},
		"response_type": {"code"},
	}
}

// exchange performs a single call with its own deadline.
func (d *Delegate) exchange(ctx context.Context, form url.Values) (*core.DelegatedLoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent(core.CorrelationID(ctx)))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response (status %d): %w", resp.StatusCode, err)
	}

	// an empty body (e.g. 204) relays the status with a zero envelope
	var envelope core.TokenEnvelope
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w (status %d): %w", ErrMalformedResponse, resp.StatusCode, err)
		}
	}

	log.Ctx(ctx).Debug().
		Int("status", resp.StatusCode).
		Str("token_type", envelope.TokenType).
		Msg("identity provider responded")

	return &core.DelegatedLoginResult{
		Envelope: envelope,
		Status:   resp.StatusCode,
	}, nil
}
