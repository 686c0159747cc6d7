package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "chat", "review", "libraries", "history", "auth", "provider"} {
		assert.Contains(t, names, want)
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, name := range []string{"print-logs", "log-level", "directory"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := map[string]string{
		"main.go":          "go",
		"src/App.tsx":      "typescriptreact",
		"lib/util.JS":      "javascript",
		"script.py":        "python",
		"Makefile":         "",
		"component.svelte": "svelte",
	}
	for path, want := range tests {
		assert.Equal(t, want, languageFromPath(path), path)
	}
}

func TestNestedSubcommands(t *testing.T) {
	tests := map[string][]string{
		"provider": {"list", "use"},
		"history":  {"show", "list", "reset"},
		"auth":     {"set", "remove", "status"},
	}
	for parent, want := range tests {
		cmd, _, err := rootCmd.Find([]string{parent})
		if !assert.NoError(t, err, parent) {
			continue
		}
		var names []string
		for _, c := range cmd.Commands() {
			names = append(names, c.Name())
		}
		assert.ElementsMatch(t, want, names, parent)
	}
}
