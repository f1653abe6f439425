package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set via -ldflags "-X main.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("perps", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
