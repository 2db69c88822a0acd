package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "accessctl",
		Short: "Tools for the Access AI backend",
		Long: `accessctl exercises the Access AI building blocks from a terminal.

Available subcommands:
  recognize   - Map a spoken phrase to a command symbol
  reconstruct - Turn sign tokens into a sentence
  session     - Drive a live mode session over websocket`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("vocabulary", "", "vocabulary YAML file (default: built-in)")
	root.PersistentFlags().String("oracle", "", "oracle tables YAML file (default: built-in)")

	root.AddCommand(newRecognizeCmd(), newReconstructCmd(), newSessionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
