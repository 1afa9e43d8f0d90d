package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/core"
)

var (
	whyToken    string
	whyPolicies []string
)

var whyCmd = &cobra.Command{
	Use:   "why",
	Short: "Explain why a token passes (or fails) the authorization policies",
	Long: `Asks the server for a detailed trace of the policy evaluation for a token.
Useful for debugging why a request is rejected with 401 or 403.

Note: This command requires a running idgate server and an Admin login.`,
	Example: `  # Which policies does this token satisfy?
  idgate why --token <token>

  # Why is it not admitted by Admin?
  idgate why --token <token> --policy Admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		trace, correlation, err := cli.ExplainTrace(cmd.Context(), whyToken, whyPolicies...)
		if err != nil {
			return logError(err, correlation, "failed to explain token")
		}

		printTrace(trace)
		return nil
	},
}

func printTrace(trace *core.EvaluationTrace) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	subject := faint("(anonymous)")
	if trace.Identity.Authenticated() {
		subject = fmt.Sprintf("%s <%s> [%s]", bold(trace.Identity.SubjectID), trace.Identity.Email,
			strings.Join(trace.Identity.Roles, ", "))
	}
	fmt.Printf("\n%s for %s\n", bold("Evaluation Trace"), subject)
	fmt.Println(faint("---------------------------------------------------"))

	for _, res := range trace.PolicyResults {
		icon := redCross
		if res.Matched {
			icon = greenCheck
		}

		fmt.Printf("%s Policy: %s\n", icon, bold(res.PolicyName))
		if res.Description != "" {
			fmt.Printf("  %s\n", faint(res.Description))
		}

		for _, cond := range res.ConditionResults {
			// calculate depth based on leading spaces
			trimmed := strings.TrimLeft(cond.Expression, " ")
			indent := strings.Repeat(" ", len(cond.Expression)-len(trimmed))

			condIcon := red("✖")
			if cond.Matched {
				condIcon = green("✔")
			}

			if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
				fmt.Printf("    %s%s %s\n", indent, condIcon, cyan(trimmed))
			} else {
				fmt.Printf("    %s%s %s\n", indent, condIcon, trimmed)
			}

			if cond.Reason != "" {
				reason := faint(cond.Reason)
				if !cond.Matched {
					reason = yellow(cond.Reason)
				}
				fmt.Printf("%s      ↳ %s\n", indent, reason)
			}
		}

		fmt.Println()
	}

	fmt.Println("---------------------------------------------------")
	if trace.FinalDecision {
		fmt.Printf("Decision: %s\n", bold(green("admitted")))
	} else {
		fmt.Printf("Decision: %s\n", bold(red("rejected")))
	}
	fmt.Printf("%s %s\n\n", faint("correlation:"), faint(trace.CorrelationID))
}

func init() {
	rootCmd.AddCommand(whyCmd)

	whyCmd.Flags().StringVarP(&whyToken, "token", "t", "", "Token to explain")
	whyCmd.Flags().StringSliceVarP(&whyPolicies, "policy", "p", nil, "Policy to evaluate (repeatable, default is all)")

	_ = whyCmd.MarkFlagRequired("token")
}
