package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/cliconfig"
	"github.com/darmiel/idgate/internal/token"
	"github.com/darmiel/idgate/pkg/client"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with an idgate server",
	Long: `Logs in with email and password and saves the returned token locally,
so that later commands (validate, why, audit) are authenticated.
The password is read from stdin if --password is not given.`,
	Example: `  idgate login --server http://localhost:8080 --email admin@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.RemoteAddr()
		if err != nil {
			return err
		}

		password := loginPassword
		if password == "" {
			password, err = readPassword()
			if err != nil {
				return err
			}
		}

		log.Info().Msgf("Logging in to %s as %s...", server, loginEmail)
		tok, correlation, err := client.New(server).Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return logError(err, correlation, "login failed")
		}

		cred := &cliconfig.Credential{Token: tok, Email: loginEmail}
		var claims token.Claims
		if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err == nil && claims.ExpiresAt != nil {
			cred.ExpiresAt = claims.ExpiresAt.Time
		}

		cfg, path, err := f.LoadCLIConfig()
		if err != nil {
			return fmt.Errorf("loading credentials: %w", err)
		}
		if err := cfg.SetCredential(server, cred); err != nil {
			return err
		}
		if err := cliconfig.Save(path, cfg); err != nil {
			return logError(err, correlation, "login succeeded but could not save credentials")
		}

		logSuccess("saved credentials for %s", bold(server))
		if !cred.ExpiresAt.IsZero() {
			log.Info().Msgf("token expires at %s", cred.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (read from stdin if empty)")

	_ = loginCmd.MarkFlagRequired("email")
}
