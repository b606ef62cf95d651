package main

import (
	"os"

	"github.com/aretw0/stately/internal/cli"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the recorded action log",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return cli.PrintLog(cmd.Context(), s, cli.NewPrinter(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
