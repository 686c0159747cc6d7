package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/internal/orchestrator"
	"github.com/dkaus1/vscode-ai-ext/internal/provider"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

var (
	chatContinue bool
	chatInline   bool
	chatFile     string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message in the workspace conversation",
	Long: `Send a message to the active provider and print the answer.

The conversation is persisted per workspace, so consecutive calls build on
each other. Use --continue to ask for the rest of a cut-off answer, and
--inline for a one-off prompt that does not touch the conversation.`,
	Example: `  companion chat "explain this function" --file main.go
  companion chat --continue
  companion chat --inline "write a regex for semver"`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatContinue, "continue", "c", false, "Continue the last answer")
	chatCmd.Flags().BoolVar(&chatInline, "inline", false, "Send a stateless inline prompt")
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "Attach a file as the selected code")
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "" && !chatContinue {
		return fmt.Errorf("message required. Usage: companion chat \"your message\"")
	}

	var selected string
	if chatFile != "" {
		data, err := os.ReadFile(chatFile)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", chatFile, err)
		}
		selected = string(data)
	}

	ctx := context.Background()
	orch, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer orch.Bus().Close()

	var resp *provider.CanonicalResponse
	switch {
	case chatInline:
		text := message
		if strings.TrimSpace(selected) != "" {
			text += " \n\n" + selected
		}
		resp, err = orch.InlinePrompt(ctx, text)
	case chatContinue:
		resp, err = orch.Continue(ctx, message)
	default:
		if strings.TrimSpace(selected) != "" {
			message += " \n\n" + selected
		}
		resp, err = orch.Send(ctx, message)
	}
	if err != nil {
		return err
	}

	if !chatInline {
		if err := orch.SaveHistory(ctx, nil); err != nil {
			logging.Warn().Err(err).Msg("failed to save chat history")
		}
	}

	out := resp.Content()
	if chatContinue && resp.MergedContent != "" {
		out = resp.MergedContent
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	if types.IsResumable(resp.FinishReason) {
		cmd.PrintErrln("\n(answer was cut off, run 'companion chat --continue' for the rest)")
	}
	return nil
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the uncommitted changes in the workspace",
	Long: `Collect the modified and untracked files of the workspace git
repository and ask the provider to review each diff. Files matching
review.exclude globs in the configuration are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		resp, err := orch.Review(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Content())
		return nil
	},
}

var (
	librariesE2E      bool
	librariesLanguage string
)

var librariesCmd = &cobra.Command{
	Use:   "libraries <file>",
	Short: "Suggest testing libraries for a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		userCommand := orchestrator.WriteUnitTests
		if librariesE2E {
			userCommand = orchestrator.WriteE2ETests
		}

		ctx := context.Background()
		orch, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer orch.Bus().Close()

		language := librariesLanguage
		if language == "" {
			language = languageFromPath(args[0])
		}
		libs, err := orch.FetchTestingLibraries(ctx, userCommand, language, string(data))
		if err != nil {
			return err
		}
		if len(libs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No testing libraries suggested")
			return nil
		}
		for _, lib := range libs {
			fmt.Fprintln(cmd.OutOrStdout(), lib)
		}
		return nil
	},
}

func init() {
	librariesCmd.Flags().BoolVar(&librariesE2E, "e2e", false, "Suggest end-to-end testing libraries")
	librariesCmd.Flags().StringVarP(&librariesLanguage, "language", "l", "", "Language id of the file (e.g. go, typescript)")
}

// languageIDs maps file extensions to editor language ids.
var languageIDs = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".mjs":  "javascript",
	".jsx":  "javascriptreact",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".py":   "python",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".cs":   "csharp",
}

func languageFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if id, ok := languageIDs[ext]; ok {
		return id
	}
	return strings.TrimPrefix(ext, ".")
}
