package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stately"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stately",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stately version %s\n", strings.TrimSpace(stately.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
