package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkaus1/vscode-ai-ext/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the provider access token",
	Long: `Manage the access token sent to the active provider.

The token is stored encrypted per workspace. AICC_ACCESS_TOKEN, when set,
takes precedence over the stored token.

Subcommands:
  set      Store a token (read from stdin)
  remove   Delete the stored token
  status   Show where the token comes from`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), "Enter access token: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		token, err := reader.ReadString('\n')
		if err != nil && token == "" {
			return err
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("access token cannot be empty")
		}

		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		if err := orch.SetAccessToken(ctx, token); err != nil {
			return fmt.Errorf("failed to save access token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Access token stored")
		return nil
	},
}

var authRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"logout"},
	Short:   "Delete the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		if err := orch.RemoveAccessToken(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Access token removed")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active provider and token source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		cfg := orch.Config()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Provider: %s (%s)\n", cfg.Provider, cfg.KindOf(cfg.Provider))
		fmt.Fprintf(out, "Endpoint: %s\n", cfg.Endpoint(cfg.Provider))

		status := "not configured"
		switch {
		case os.Getenv(config.EnvAccessToken) != "":
			status = fmt.Sprintf("configured (via %s)", config.EnvAccessToken)
		case orch.HasStoredAccessToken(ctx):
			status = "configured (stored)"
		}
		fmt.Fprintf(out, "Token:    %s\n", status)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authStatusCmd)
}
