package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/service"
	"github.com/darmiel/idgate/pkg/client"
)

var registerReq service.RegisterRequest

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.RemoteAddr()
		if err != nil {
			return err
		}

		if registerReq.Password == "" {
			registerReq.Password, err = readPassword()
			if err != nil {
				return err
			}
		}

		resp, correlation, err := client.New(server).Register(cmd.Context(), registerReq)
		if err != nil {
			var apiErr client.APIError
			if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
				printFieldErrors(apiErr.Fields)
			}
			return logError(err, correlation, "registration failed")
		}

		logSuccess("registered %s with role %s (id: %s)", bold(resp.Email), bold(resp.Role), resp.ID)
		log.Info().Msg("use 'idgate login' to obtain a token")
		return nil
	},
}

func printFieldErrors(fields map[string][]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("  %s %s: %s\n", redCross, bold(name), strings.Join(fields[name], " "))
	}
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringVar(&registerReq.FirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerReq.LastName, "last-name", "", "Last name")
	registerCmd.Flags().StringVarP(&registerReq.Email, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&registerReq.Password, "password", "p", "", "Password (read from stdin if empty)")
	registerCmd.Flags().StringVar(&registerReq.Address, "address", "", "Postal address")

	_ = registerCmd.MarkFlagRequired("email")
}
