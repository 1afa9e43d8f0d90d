package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/darmiel/idgate/internal/cliconfig"
	"github.com/darmiel/idgate/internal/config"
	"github.com/darmiel/idgate/internal/token"
	"github.com/darmiel/idgate/pkg/client"
)

// TokenEnv overrides the saved credential of the CLI.
const TokenEnv = EnvPrefix + "_TOKEN"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// RemoteAddr returns the configured server address.
func (f *Factory) RemoteAddr() (string, error) {
	server := viper.GetString(RemoteAddrKey)
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set %s_REMOTE_ADDR)", EnvPrefix)
	}
	return server, nil
}

func (f *Factory) CredentialsPath() (string, error) {
	if p := viper.GetString(CredentialsPathKey); p != "" {
		return p, nil
	}
	return cliconfig.DefaultPath()
}

func (f *Factory) LoadCLIConfig() (*cliconfig.CLIConfig, string, error) {
	path, err := f.CredentialsPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// GetClient returns a client authenticated with the saved credential, if any.
func (f *Factory) GetClient() (*client.Client, error) {
	server, err := f.RemoteAddr()
	if err != nil {
		return nil, err
	}

	var tok string
	if cfg, _, err := f.LoadCLIConfig(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			tok = cred.Token
		}
	}
	if envToken := os.Getenv(TokenEnv); envToken != "" { // token prio 2: env var
		tok = envToken
	}

	return client.New(server, client.WithAuthToken(tok)), nil
}

// LoadServerConfig loads the service configuration (config file, env, flags).
func (f *Factory) LoadServerConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// TokenPair builds an issuer and validator from the service configuration.
func (f *Factory) TokenPair() (*token.Issuer, *token.Validator, error) {
	cfg, err := f.LoadServerConfig()
	if err != nil {
		return nil, nil, err
	}
	iss, err := token.NewIssuer(cfg.TokenOptions())
	if err != nil {
		return nil, nil, err
	}
	val, err := token.NewValidator(cfg.TokenOptions())
	if err != nil {
		return nil, nil, err
	}
	return iss, val, nil
}
