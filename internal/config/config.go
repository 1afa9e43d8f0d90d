package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/darmiel/idgate/internal/audit"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/delegate"
	"github.com/darmiel/idgate/internal/retry"
	"github.com/darmiel/idgate/internal/token"
)

const EnvironmentProduction = "production"

// Login modes.
const (
	LoginModeLocal     = "local"
	LoginModeDelegated = "delegated"
)

type Config struct {
	// Environment is the deployment environment. Error detail is hidden in "production".
	Environment string `mapstructure:"environment"`

	Server   ServerConfig   `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Login    LoginConfig    `mapstructure:"login"`
	Delegate DelegateConfig `mapstructure:"delegate"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Audit    AuditConfig    `mapstructure:"audit"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`

	// Users are seeded into the credential store at startup.
	Users []UserConfig `mapstructure:"users"`

	// PoliciesFile optionally points to a YAML file with additional policies.
	PoliciesFile string `mapstructure:"policies_file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type JWTConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type LoginConfig struct {
	Mode string `mapstructure:"mode"` // "local" or "delegated"
}

// DelegateConfig holds the external identity provider's token endpoint settings.
type DelegateConfig struct {
	TokenURL       string        `mapstructure:"token_url"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	Audience       string        `mapstructure:"audience"`
	Scope          string        `mapstructure:"scope"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`

	// RetryPolicy names the retry policy wrapped around every provider call.
	RetryPolicy string `mapstructure:"retry_policy"`
}

type RetryConfig struct {
	// MaxAttempts and Base configure the "default" policy.
	MaxAttempts int     `mapstructure:"max_attempts"`
	Base        float64 `mapstructure:"base"`

	Policies []RetryPolicyConfig `mapstructure:"policies"`
}

type RetryPolicyConfig struct {
	Name        string  `mapstructure:"name"`
	MaxAttempts int     `mapstructure:"max_attempts"`
	Base        float64 `mapstructure:"base"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Type string `mapstructure:"type"` // e.g., "memory", "file", "noop"
	Path string `mapstructure:"path"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// UserConfig is a bootstrap account.
type UserConfig struct {
	Email     string   `mapstructure:"email"`
	Password  string   `mapstructure:"password"`
	FirstName string   `mapstructure:"first_name"`
	LastName  string   `mapstructure:"last_name"`
	Address   string   `mapstructure:"address"`
	Roles     []string `mapstructure:"roles"`
}

// SetDefaults registers every key with its default, so that environment
// variables are picked up for keys missing from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "idgate")
	v.SetDefault("jwt.audience", "idgate-api")
	v.SetDefault("jwt.ttl", token.DefaultTTL)

	v.SetDefault("login.mode", LoginModeLocal)

	v.SetDefault("delegate.token_url", "")
	v.SetDefault("delegate.client_id", "")
	v.SetDefault("delegate.client_secret", "")
	v.SetDefault("delegate.audience", "")
	v.SetDefault("delegate.scope", delegate.DefaultScope)
	v.SetDefault("delegate.attempt_timeout", delegate.DefaultAttemptTimeout)
	v.SetDefault("delegate.retry_policy", retry.DefaultPolicyName)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base", 2.0)

	v.SetDefault("audit.type", audit.TypeMemory)
	v.SetDefault("audit.path", "")

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.no_color", false)

	v.SetDefault("policies_file", "")
}

// Load decodes the configuration held by v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("jwt.signing_key is required"))
	}
	if c.JWT.TTL < 0 {
		errs = append(errs, errors.New("jwt.ttl must not be negative"))
	}

	switch c.Login.Mode {
	case LoginModeLocal:
	case LoginModeDelegated:
		if err := c.DelegateSettings().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("delegate: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("login.mode must be '%s' or '%s', got '%s'",
			LoginModeLocal, LoginModeDelegated, c.Login.Mode))
	}

	if reg, err := c.RetryRegistry(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	} else if c.Login.Mode == LoginModeDelegated {
		if _, ok := reg.Get(c.DelegateRetryPolicy()); !ok {
			errs = append(errs, fmt.Errorf("delegate.retry_policy '%s' is not defined in retry.policies", c.DelegateRetryPolicy()))
		}
	}

	if !slices.Contains([]string{audit.TypeMemory, audit.TypeFile, audit.TypeNoop}, c.Audit.Type) {
		errs = append(errs, fmt.Errorf("audit.type '%s' is not supported", c.Audit.Type))
	}
	if c.Audit.Type == audit.TypeFile && c.Audit.Path == "" {
		errs = append(errs, errors.New("audit.path is required for file auditing"))
	}

	for idx, u := range c.Users {
		if u.Email == "" || u.Password == "" {
			errs = append(errs, fmt.Errorf("user at index %d needs an email and a password", idx))
		}
	}

	return errors.Join(errs...)
}

// IsProduction reports whether internal error detail must be hidden.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// TokenOptions returns the options shared by the token issuer and validator.
func (c *Config) TokenOptions() token.Options {
	return token.Options{
		Key:      []byte(c.JWT.SigningKey),
		Issuer:   c.JWT.Issuer,
		Audience: c.JWT.Audience,
		TTL:      c.JWT.TTL,
	}
}

func (c *Config) DelegateSettings() delegate.Config {
	return delegate.Config{
		TokenURL:       c.Delegate.TokenURL,
		ClientID:       c.Delegate.ClientID,
		ClientSecret:   c.Delegate.ClientSecret,
		Audience:       c.Delegate.Audience,
		Scope:          c.Delegate.Scope,
		AttemptTimeout: c.Delegate.AttemptTimeout,
	}
}

// DelegateRetryPolicy returns the name of the retry policy used by the
// identity delegate.
func (c *Config) DelegateRetryPolicy() string {
	if c.Delegate.RetryPolicy == "" {
		return retry.DefaultPolicyName
	}
	return c.Delegate.RetryPolicy
}

// RetryRegistry builds the named retry policies. The "default" policy is
// always present, an entry named "default" in retry.policies replaces it.
// Every entry must carry its own positive base.
func (c *Config) RetryRegistry() (*retry.Registry, error) {
	var (
		policies   []retry.Policy
		errs       []error
		overridden bool
	)
	for idx, pc := range c.Retry.Policies {
		if pc.Name == retry.DefaultPolicyName {
			overridden = true
		}
		p, err := retry.NewExponentialPolicy(pc.Name, pc.MaxAttempts, pc.Base)
		if err != nil {
			errs = append(errs, fmt.Errorf("policies[%d]: %w", idx, err))
			continue
		}
		policies = append(policies, p)
	}
	if !overridden {
		p, err := retry.NewExponentialPolicy(retry.DefaultPolicyName, c.Retry.MaxAttempts, c.Retry.Base)
		if err != nil {
			errs = append(errs, err)
		} else {
			policies = append(policies, p)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return retry.NewRegistry(policies...)
}

// Registration converts the bootstrap user into a store registration.
func (u UserConfig) Registration() core.Registration {
	return core.Registration{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Password:  u.Password,
		Address:   u.Address,
		Roles:     u.Roles,
	}
}
