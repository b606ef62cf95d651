package main

import (
	"context"
	"os"

	"github.com/aretw0/stately/internal/cli"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Hammer the counter from concurrent workers and record every action",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := cli.DemoOptions{Workers: cfg.Demo.Workers, Dispatches: cfg.Demo.Dispatches}
		if cmd.Flags().Changed("workers") {
			opts.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("dispatches") {
			opts.Dispatches, _ = cmd.Flags().GetInt("dispatches")
		}
		opts.Append, _ = cmd.Flags().GetBool("append")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		p := cli.NewPrinter(os.Stdout)
		p.Banner()
		_, err = cli.RunDemo(ctx, s, opts, p)
		return err
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntP("workers", "w", 4, "Number of concurrent workers")
	demoCmd.Flags().IntP("dispatches", "n", 100, "Increments dispatched by each worker")
	demoCmd.Flags().Bool("append", false, "Restore from the existing log and keep appending to it")
}
