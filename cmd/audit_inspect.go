package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/pkg/client"
)

var auditInspectCmd = &cobra.Command{
	Use:     "inspect CORRELATION-ID",
	Short:   "Show full details of a specific audit log entry",
	Example: `  idgate audit inspect d0rfa6s5n0ts73b0g3tg`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correlationID := args[0]
		if correlationID == "" {
			return fmt.Errorf("correlation ID cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving entry with correlation ID '%s'...", correlationID)
		audits, correlation, err := cli.ListAudits(cmd.Context(), client.ListAuditsOpts{
			Limit:         1,
			CorrelationID: correlationID,
		})
		if err != nil {
			return logError(err, correlation, "failed to retrieve audit log entry")
		}
		if len(audits) == 0 {
			log.Warn().Str("correlation_id", correlationID).Msg("no audit log entries found")
			return nil
		}

		entry := audits[0]

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		printKV := func(key string, val any) {
			fmt.Printf("  %-26s %v\n", faint(key)+":", val)
		}

		outcome := green("success")
		if !entry.Success {
			outcome = red("failure")
		}

		fmt.Println(bold("\n── Audit Entry ──"))
		printKV("Correlation ID", entry.ID)
		printKV("Time", entry.Time.Local().Format(time.RFC1123))
		printKV("Action", entry.Action)
		printKV("Outcome", outcome)

		fmt.Println(bold("\n── Identity ──"))
		printKV("Email", orNone(entry.Email))
		printKV("Subject", orNone(entry.Subject))
		printKV("Roles", orNone(strings.Join(entry.Roles, ", ")))

		if entry.Error != "" || entry.Detail != "" {
			fmt.Println(bold("\n── Failure ──"))
			printKV("Error", red(entry.Error))
			printKV("Detail", orNone(entry.Detail))
		}

		fmt.Println(bold("\n── Metadata ──"))
		if len(entry.Metadata) == 0 {
			fmt.Printf("  %s\n", faint("(none)"))
		}
		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printKV(k, entry.Metadata[k])
		}
		fmt.Println()

		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return faint("(none)")
	}
	return s
}

func init() {
	auditCmd.AddCommand(auditInspectCmd)
}
