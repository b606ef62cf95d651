package main

import (
	"context"
	"os"

	"github.com/aretw0/stately/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Reset the counter and replay the recorded actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		steps, _ := cmd.Flags().GetInt("steps")
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.RunReplay(ctx, s, steps, cli.NewPrinter(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Int("steps", -1, "Number of entries to replay (-1 for all)")
}
