package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/token"
)

var tokenInspectUnverified bool

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect [TOKEN]",
	Short: "Validate a token locally and print its claims",
	Long: `Validates the token with the configured signing key and prints its claims.
The token is read from stdin if no argument is given.
With --unverified the claims are printed without checking the signature.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := tokenArg(args)
		if err != nil {
			return err
		}

		if tokenInspectUnverified {
			var claims token.Claims
			if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
				return fmt.Errorf("decoding token: %w", err)
			}
			fmt.Println(faint("signature not verified"))
			printClaims(claims.List())
			return nil
		}

		_, validator, err := f.TokenPair()
		if err != nil {
			return err
		}

		claims, err := validator.Parse(raw, time.Time{})
		switch {
		case errors.Is(err, token.ErrExpired):
			fmt.Printf("%s %s: %v\n", redCross, bold("expired"), err)
			return BeQuietError{}
		case err != nil:
			fmt.Printf("%s %s: %v\n", redCross, bold("invalid"), err)
			return BeQuietError{}
		}

		fmt.Printf("%s %s\n", greenCheck, bold("valid"))
		printClaims(claims.List())
		return nil
	},
}

func tokenArg(args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading token from stdin: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", errors.New("token cannot be empty")
	}
	return raw, nil
}

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)

	tokenInspectCmd.Flags().BoolVar(&tokenInspectUnverified, "unverified", false, "Skip signature and claim checks")
}
