package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <payload.json>",
	Short: "Check a review payload",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			fatal("Error reading payload", err)
		}

		svc := newService()
		if _, err := svc.ParsePayload(raw); err != nil {
			fmt.Printf("invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("valid: %d issue(s)\n", svc.CountIssues(raw))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
