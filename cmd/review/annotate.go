package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	contractreview "github.com/moshango/Contract-review-sub001"
	"github.com/moshango/Contract-review-sub001/pkg/adapters/fs"
	"github.com/moshango/Contract-review-sub001/pkg/annotate"
)

var (
	outputPath     string
	cleanupAnchors bool
	annotateJSON   bool
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <in.docx> <payload.json>",
	Short: "Insert review comments into a Word document",
	Long: `Insert one Word comment per issue of the payload. Issues whose clause
cannot be located are skipped and reported; the input file is never modified.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if outputPath == "" {
			fmt.Println("Error: -o is required")
			cmd.Usage()
			os.Exit(1)
		}

		doc, err := os.ReadFile(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}
		raw, err := os.ReadFile(args[1])
		if err != nil {
			fatal("Error reading payload", err)
		}

		var extra []contractreview.Option
		if cmd.Flags().Changed("cleanup-anchors") {
			extra = append(extra, contractreview.WithCleanupAnchors(cleanupAnchors))
		}
		svc := newService(extra...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := svc.AnnotatePayload(ctx, doc, raw)
		if err != nil {
			fatal("Error annotating document", err)
		}
		if err := fs.WriteFileAtomic(outputPath, res.Document, 0644); err != nil {
			fatal("Error writing document", err)
		}

		printOutcomes(res, annotateJSON)
		fmt.Printf("%d of %d issue(s) applied, written to %s\n", res.Applied(), len(res.Outcomes), outputPath)
	},
}

func printOutcomes(res *annotate.Result, asJSON bool) {
	if asJSON {
		printJSON(res)
		return
	}
	for _, o := range res.Outcomes {
		switch {
		case o.Applied && o.CommentID != "":
			fmt.Printf("  [%d] %s -> comment %s\n", o.Index, o.ClauseID, o.CommentID)
			continue
		case o.Applied:
			fmt.Printf("  [%d] %s -> anchor %s\n", o.Index, o.ClauseID, o.AnchorID)
			continue
		}
		fmt.Printf("  [%d] %s skipped: %v\n", o.Index, o.ClauseID, o.Err)
	}
	if res.AnchorsRemoved > 0 {
		fmt.Printf("  %d anchor(s) removed\n", res.AnchorsRemoved)
	}
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output .docx path")
	annotateCmd.Flags().BoolVar(&cleanupAnchors, "cleanup-anchors", false, "Remove anchor bookmarks from the output")
	annotateCmd.Flags().BoolVar(&annotateJSON, "json", false, "Output outcomes in JSON format")
}
