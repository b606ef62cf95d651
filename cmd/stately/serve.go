package main

import (
	"context"
	"os"

	"github.com/aretw0/stately/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the counter, its log and its metrics over HTTP",
	Long: `Restores the counter from the recorded log and exposes it over HTTP:
/state, /dispatch, /log and the Prometheus /metrics endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		addr := cfg.Serve.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		cli.NewPrinter(os.Stdout).Banner()
		if err := s.Restore(ctx); err != nil {
			return err
		}
		return cli.Serve(ctx, addr, cli.NewRouter(s), s.Logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":2112", "Address to listen on")
}
