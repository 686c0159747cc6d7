package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the workspace conversation",
}

var historyJSON bool

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		h, err := orch.FetchHistory(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(h)
		}

		if len(h.Messages) == 0 {
			fmt.Fprintln(out, "No chat history")
			return nil
		}
		for _, m := range h.Messages {
			fmt.Fprintf(out, "[%s]\n%s\n\n", m.Role, m.Content)
		}
		total := 0
		for _, u := range h.TokenUsageLedger {
			if u != nil {
				total += u.TotalTokens
			}
		}
		fmt.Fprintf(out, "%d messages, %d tokens in window\n", len(h.Messages), total)
		if h.ProviderThreadID != "" {
			fmt.Fprintf(out, "thread: %s\n", h.ProviderThreadID)
		}
		return nil
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workspaces with a stored conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		workspaces, err := orch.Workspaces(ctx)
		if err != nil {
			return err
		}
		for _, ws := range workspaces {
			fmt.Fprintln(cmd.OutOrStdout(), ws)
		}
		return nil
	},
}

var historyResetCmd = &cobra.Command{
	Use:     "reset",
	Aliases: []string{"clear"},
	Short:   "Delete the stored conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		if err := orch.ResetHistory(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Chat history cleared")
		return nil
	},
}

func init() {
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the raw snapshot as JSON")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyResetCmd)
}
