package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dkaus1/vscode-ai-ext/internal/config"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "List or select the AI provider",
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := GetWorkDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(cfg.APIProvider))
		for key := range cfg.APIProvider {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		out := cmd.OutOrStdout()
		for _, key := range keys {
			marker := " "
			if key == cfg.Provider {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-12s %-10s %s\n", marker, key, cfg.KindOf(key), cfg.Endpoint(key))
		}
		return nil
	},
}

var providerUseCmd = &cobra.Command{
	Use:   "use <provider>",
	Short: "Make a provider active for this project",
	Long: `Write the provider into the project configuration file. A running
'companion serve' reloads it and starts a fresh conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := GetWorkDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		key := args[0]
		if _, ok := cfg.APIProvider[key]; !ok {
			return fmt.Errorf("unknown provider %q", key)
		}

		path, err := config.SaveProjectProvider(dir, key)
		if err != nil {
			return fmt.Errorf("failed to save provider: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Provider set to %s in %s\n", key, path)
		return nil
	},
}

func init() {
	providerCmd.AddCommand(providerListCmd)
	providerCmd.AddCommand(providerUseCmd)
}
