package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
	"github.com/darmiel/idgate/internal/retry"
)

func readViper(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(readViper(t, `
jwt:
  signing_key: secret
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 336*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, LoginModeLocal, cfg.Login.Mode)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Retry.Base)
	assert.Equal(t, 10*time.Second, cfg.Delegate.AttemptTimeout)
	assert.Equal(t, "openid profile email", cfg.Delegate.Scope)
	assert.False(t, cfg.IsProduction())

	reg, err := cfg.RetryRegistry()
	require.NoError(t, err)
	p, ok := reg.Get(retry.DefaultPolicyName)
	require.True(t, ok)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 4*time.Second, p.Backoff(2))
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(readViper(t, `
environment: production
jwt:
  signing_key: secret
  ttl: 1h
login:
  mode: delegated
delegate:
  token_url: https://idp.example.com/oauth/token
  client_id: id
  client_secret: s3cret
  attempt_timeout: 2s
retry:
  max_attempts: 5
  base: 3
  policies:
    - name: fast
      max_attempts: 2
      base: 1.5
cors:
  allowed_origins: https://a.example.com,https://b.example.com
users:
  - email: admin@example.com
    password: admin-pass
    roles: [Admin, User]
`))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 2*time.Second, cfg.DelegateSettings().AttemptTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, []string{core.RoleAdmin, core.RoleUser}, cfg.Users[0].Registration().Roles)

	reg, err := cfg.RetryRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{retry.DefaultPolicyName, "fast"}, reg.Names())
}

func TestLoad_DelegateRetryPolicy(t *testing.T) {
	cfg, err := Load(readViper(t, `
jwt:
  signing_key: secret
login:
  mode: delegated
delegate:
  token_url: https://idp.example.com/oauth/token
  client_id: id
  retry_policy: patient
retry:
  policies:
    - name: default
      max_attempts: 2
      base: 3
    - name: patient
      max_attempts: 6
      base: 1.5
`))
	require.NoError(t, err)
	assert.Equal(t, "patient", cfg.DelegateRetryPolicy())

	reg, err := cfg.RetryRegistry()
	require.NoError(t, err)

	def, ok := reg.Get(retry.DefaultPolicyName)
	require.True(t, ok)
	assert.Equal(t, 2, def.MaxAttempts)
	assert.Equal(t, 9*time.Second, def.Backoff(2))

	patient, ok := reg.Get("patient")
	require.True(t, ok)
	assert.Equal(t, 6, patient.MaxAttempts)
	assert.Equal(t, 2250*time.Millisecond, patient.Backoff(2))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("IDGATE_JWT_SIGNING_KEY", "from-env")
	t.Setenv("IDGATE_RETRY_MAX_ATTEMPTS", "7")

	v := viper.New()
	v.SetEnvPrefix("IDGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.SigningKey)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "missing signing key", doc: `environment: dev`, wantErr: "jwt.signing_key"},
		{name: "unknown login mode", doc: "jwt: {signing_key: k}\nlogin: {mode: magic}", wantErr: "login.mode"},
		{name: "delegated without token url", doc: "jwt: {signing_key: k}\nlogin: {mode: delegated}", wantErr: "token_url"},
		{name: "zero attempts", doc: "jwt: {signing_key: k}\nretry: {max_attempts: 0}", wantErr: "max_attempts"},
		{name: "zero base", doc: "jwt: {signing_key: k}\nretry: {base: 0}", wantErr: "base must be positive"},
		{
			name:    "named policy without base",
			doc:     "jwt: {signing_key: k}\nretry: {policies: [{name: default, max_attempts: 3}]}",
			wantErr: "policies[0]",
		},
		{
			name:    "negative base",
			doc:     "jwt: {signing_key: k}\nretry: {policies: [{name: neg, max_attempts: 3, base: -2}]}",
			wantErr: "base must be positive",
		},
		{
			name: "unknown delegate retry policy",
			doc: "jwt: {signing_key: k}\nlogin: {mode: delegated}\n" +
				"delegate: {token_url: 'https://idp.example.com/token', client_id: c, retry_policy: slow}",
			wantErr: "delegate.retry_policy 'slow'",
		},
		{name: "file audit without path", doc: "jwt: {signing_key: k}\naudit: {type: file}", wantErr: "audit.path"},
		{name: "user without password", doc: "jwt: {signing_key: k}\nusers: [{email: a@example.com}]", wantErr: "index 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(readViper(t, tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policies:
  - name: CompanyStaff
    description: staff accounts of example.com
    authenticated: true
    roles: [User]
    condition:
      email: { contains: "@example.com" }
  - name: MultiRole
    authenticated: true
    expr: len(identity.roles) > 1
`), 0o600))

	policies, err := LoadPolicies(path)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "CompanyStaff", policies[0].Name)
	assert.Equal(t, &core.Condition{Key: "email", Operator: core.OpContains, Value: "@example.com"}, policies[0].Condition)

	reg, err := engine.NewDefaultRegistry(policies...)
	require.NoError(t, err)

	staff := core.NewIdentity("1", "jane@example.com", core.RoleUser)
	outsider := core.NewIdentity("2", "joe@elsewhere.org", core.RoleUser)
	assert.True(t, reg.Authorize(staff, "CompanyStaff"))
	assert.False(t, reg.Authorize(outsider, "CompanyStaff"))
	assert.False(t, reg.Authorize(staff, "MultiRole"))
	assert.True(t, reg.Authorize(core.NewIdentity("3", "a@example.com", core.RoleUser, core.RoleAdmin), "MultiRole"))
}

func TestLoadPolicies_MissingFile(t *testing.T) {
	_, err := LoadPolicies(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
