package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/config"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/engine"
)

var policiesLocal bool

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the registered authorization policies",
	Long: `Prints the policies registered on the server as YAML.
With --local the built-in policies and the configured policies_file are listed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var policies []core.Policy
		if policiesLocal {
			reg, err := localPolicies()
			if err != nil {
				return err
			}
			policies = reg.Policies()
		} else {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			var correlation string
			policies, correlation, err = cli.ListPolicies(cmd.Context())
			if err != nil {
				return logError(err, correlation, "failed to list policies")
			}
		}

		out, err := yaml.Marshal(config.PolicyFile{Policies: policies})
		if err != nil {
			return fmt.Errorf("encoding policies: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

// localPolicies builds the policy registry the server would build from the config.
func localPolicies() (*engine.Registry, error) {
	cfg, err := f.LoadServerConfig()
	if err != nil {
		return nil, err
	}
	var extra []core.Policy
	if cfg.PoliciesFile != "" {
		if extra, err = config.LoadPolicies(cfg.PoliciesFile); err != nil {
			return nil, err
		}
	}
	return engine.NewDefaultRegistry(extra...)
}

func init() {
	rootCmd.AddCommand(policiesCmd)

	policiesCmd.Flags().BoolVar(&policiesLocal, "local", false, "List policies from the local configuration")
}
