package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"AccessAI/pkg/oracle"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newReconstructCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconstruct [tokens...]",
		Short: "Turn sign tokens into a sentence",
		Long: `Runs the sentence oracle over a token sequence. Without --remote only the
local tables are used.

Example:
  accessctl reconstruct ME GO SCHOOL
  accessctl reconstruct --remote http://localhost:5001/translate --strategy always HELLO`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReconstruct,
	}
	cmd.Flags().String("remote", "", "translate endpoint accepting {\"tokens\": [...]}")
	cmd.Flags().String("strategy", string(oracle.ModeTimeBoxed), "remote strategy: always, skip or timeboxed")
	cmd.Flags().Duration("timeout", oracle.DefaultTimeout, "time box for the remote call")
	return cmd
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	tablesPath, _ := cmd.Flags().GetString("oracle")
	remote, _ := cmd.Flags().GetString("remote")
	mode, _ := cmd.Flags().GetString("strategy")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	log := logrus.New()
	log.SetOutput(io.Discard)

	var opts []oracle.Option
	if tablesPath != "" {
		tables, err := oracle.LoadTables(tablesPath)
		if err != nil {
			return err
		}
		opts = append(opts, oracle.WithTables(tables))
	}
	if remote != "" {
		strategy, err := oracle.ParseStrategy(mode, timeout)
		if err != nil {
			return err
		}
		opts = append(opts, oracle.WithRemote(oracle.NewHTTPGenerator(remote, timeout), strategy))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout+5*time.Second)
	defer cancel()

	res, err := oracle.New(log, opts...).Reconstruct(ctx, args)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t[%s]\n", res.Sentence, res.Quality)
	return nil
}
