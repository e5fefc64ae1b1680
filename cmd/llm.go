package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect automatic grading LLM calls",
}

var llmUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show aggregated LLM request counts and token usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		newLogger(cfg)

		ctx := cmd.Context()
		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		attemptID, _ := cmd.Flags().GetString("attempt")
		u, err := s.Events().LLMUsage(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		out := cmd.OutOrStdout()
		if u.Requests == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		scope := "all attempts"
		if attemptID != "" {
			scope = "attempt " + attemptID
		}
		fmt.Fprintf(out, "LLM usage for %s\n", scope)
		fmt.Fprintln(out, strings.Repeat("─", 40))
		fmt.Fprintf(out, "%-16s %10d\n", "Requests", u.Requests)
		fmt.Fprintf(out, "%-16s %10d\n", "Failures", u.Failures)
		fmt.Fprintf(out, "%-16s %10d\n", "Input tokens", u.InputTokens)
		fmt.Fprintf(out, "%-16s %10d\n", "Output tokens", u.OutputTokens)
		fmt.Fprintln(out, strings.Repeat("─", 40))
		fmt.Fprintf(out, "%-16s %10d\n", "Total tokens", u.InputTokens+u.OutputTokens)
		return nil
	},
}

func init() {
	llmUsageCmd.Flags().String("attempt", "", "Limit to one attempt id")
	llmCmd.AddCommand(llmUsageCmd)
}
