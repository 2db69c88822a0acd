package main

import (
	"fmt"
	"strings"

	"AccessAI/pkg/command"

	"github.com/spf13/cobra"
)

func newRecognizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recognize [phrase]",
		Short: "Map a spoken phrase to a command symbol",
		Long: `Normalizes the phrase the way live transcripts are normalized and runs it
through the chosen vocabulary.

Example:
  accessctl recognize --mode motor "please scroll down"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRecognize,
	}
	cmd.Flags().String("mode", command.Blind, "vocabulary to use: blind, motor or confirm")
	return cmd
}

func runRecognize(cmd *cobra.Command, args []string) error {
	vocabPath, _ := cmd.Flags().GetString("vocabulary")
	name, _ := cmd.Flags().GetString("mode")

	set, err := command.Load(vocabPath)
	if err != nil {
		return err
	}
	vocab, err := set.Get(strings.ToLower(name))
	if err != nil {
		return err
	}

	normalized := command.Normalize(strings.Join(args, " "))
	out := cmd.OutOrStdout()

	entry, ok := vocab.Recognize(normalized)
	if !ok {
		fmt.Fprintf(out, "%q -> %s\n", normalized, command.None)
		return nil
	}

	fmt.Fprintf(out, "%q -> %s", normalized, entry.Symbol)
	if entry.RequiresConfirmation {
		fmt.Fprintf(out, " (confirm: %s)", entry.Prompt)
	}
	fmt.Fprintln(out)
	return nil
}
