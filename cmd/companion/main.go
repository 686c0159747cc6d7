// Package main provides the entry point for the companion CLI.
package main

import (
	"fmt"
	"os"

	"github.com/dkaus1/vscode-ai-ext/cmd/companion/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
