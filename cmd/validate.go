package cmd

import (
	"errors"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/pkg/client"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the saved token against the server and list its claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		claims, correlation, err := cli.Validate(cmd.Context())
		if err != nil {
			if errors.Is(err, client.ErrTokenExpired) {
				return logError(err, correlation, "token expired, use 'idgate login' to get a new one")
			}
			return logError(err, correlation, "token rejected")
		}

		logSuccess("token is valid")
		printClaims(claims)
		return nil
	},
}

func printClaims(claims []core.Claim) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Type", "Value"})
	for _, c := range claims {
		t.AppendRow(table.Row{c.Type, c.Value})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
