// Package commands provides the CLI commands for the companion.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkaus1/vscode-ai-ext/internal/config"
	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/internal/orchestrator"
	"github.com/dkaus1/vscode-ai-ext/internal/storage"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	workDir   string
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "AI code companion - chat, inline prompts and code review",
	Long: `The companion talks to an OpenAI-compatible, PSChat or local AI
provider on behalf of an editor.

Run 'companion serve' to expose the command/event protocol over HTTP, or
use 'companion chat' and 'companion review' directly from a terminal.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "directory", "C", "", "Workspace directory")

	rootCmd.SetVersionTemplate(fmt.Sprintf("companion %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(librariesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(providerCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogging sends logs to stderr with --print-logs, otherwise to a file
// under the state directory.
func initLogging(cmd *cobra.Command, args []string) error {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(logLevel)
	if printLogs {
		cfg.Pretty = true
	} else {
		dir := config.GetPaths().LogPath()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		cfg.Output = io.Discard
		cfg.LogToFile = true
		cfg.LogDir = dir
	}
	logging.Init(cfg)
	return nil
}

// GetWorkDir returns the absolute workspace directory from the flag or the
// current directory.
func GetWorkDir() (string, error) {
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	return os.Getwd()
}

// newOrchestrator loads configuration and the persisted conversation for
// the workspace.
func newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	dir, err := GetWorkDir()
	if err != nil {
		return nil, err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	appConfig, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Options{
		Config:    appConfig,
		Storage:   storage.New(paths.StoragePath()),
		Workspace: dir,
		WorkDir:   dir,
	})
	if err := orch.LoadHistory(ctx); err != nil {
		logging.Warn().Err(err).Msg("starting without chat history")
	}

	logging.Info().
		Str("workspace", dir).
		Str("provider", appConfig.Provider).
		Msg("companion ready")
	return orch, nil
}
