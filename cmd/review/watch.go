package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	contractreview "github.com/moshango/Contract-review-sub001"
	"github.com/moshango/Contract-review-sub001/pkg/adapters/lifecycle"
	"github.com/moshango/Contract-review-sub001/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the rules whenever the rule file changes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := newService(contractreview.WithWatcherErrorHandler(func(err error) {
			slog.Warn("rule watcher error", "error", err)
		}))

		set, err := svc.Rules(ctx)
		if err != nil {
			fatal("Error loading rules", err)
		}
		fmt.Printf("%d rule(s) loaded, watching for changes (Ctrl+C to stop)\n", len(set))

		events, err := svc.Watch(ctx)
		if err != nil {
			fatal("Error starting watcher", err)
		}

		src := lifecycle.NewSource(events, core.EventLoad, core.EventReload, core.EventLoadFailed)
		if err := src.Start(ctx); err != nil {
			fatal("Error starting event source", err)
		}
		for e := range src.Events() {
			fmt.Println(e.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
