package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/darmiel/idgate/internal/buildinfo"
	"github.com/darmiel/idgate/internal/logging"
)

// global flags
var cfgFile string

const (
	LogLevelKey   = "log.level"
	LogFormatKey  = "log.format"
	LogNoColorKey = "log.no_color"

	RemoteAddrKey      = "remote.addr"
	CredentialsPathKey = "remote.credentials"

	EnvPrefix = "IDGATE"
)

var f = NewFactory()

var rootCmd = &cobra.Command{
	Use:   "idgate",
	Short: fmt.Sprintf("idgate auth service (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `idgate authenticates users and authorizes their requests.
Local logins are verified against the credential store and answered with a signed token,
delegated logins are forwarded to an external identity provider.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initConfig()
		if err := logging.Init(logging.Options{
			Level:   viper.GetString(LogLevelKey),
			Format:  viper.GetString(LogFormatKey),
			NoColor: viper.GetBool(LogNoColorKey),
		}); err != nil {
			return err
		}
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var quiet BeQuietError
		if !errors.As(err, &quiet) {
			log.Error().Err(err).Msg("execution failed")
		}
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Configuration file (default is ./idgate.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	bindFlag(LogLevelKey, rootCmd.PersistentFlags(), "log-level")

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	bindFlag(LogFormatKey, rootCmd.PersistentFlags(), "log-format")

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	bindFlag(LogNoColorKey, rootCmd.PersistentFlags(), "no-color")

	rootCmd.PersistentFlags().String("server", "", "Address of the remote idgate server")
	bindFlag(RemoteAddrKey, rootCmd.PersistentFlags(), "server")

	rootCmd.PersistentFlags().String("credentials", "", "Credential file of the CLI (default is $HOME/.idgate/credentials.json)")
	bindFlag(CredentialsPathKey, rootCmd.PersistentFlags(), "credentials")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// bindFlag makes the flag the highest priority source of the config key.
func bindFlag(key string, flags *pflag.FlagSet, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag '%s' to '%s': %v", name, key, err))
	}
}

func initConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// search order: current dir, XDG config
		viper.AddConfigPath(".")

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(config, "idgate"))
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName("idgate")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}
