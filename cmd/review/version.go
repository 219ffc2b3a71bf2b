package main

import (
	"fmt"

	"github.com/spf13/cobra"

	contractreview "github.com/moshango/Contract-review-sub001"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of review",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("review version %s\n", contractreview.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
