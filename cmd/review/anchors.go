package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moshango/Contract-review-sub001/pkg/adapters/fs"
	"github.com/moshango/Contract-review-sub001/pkg/core"
)

var anchorsJSON bool

var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Inspect and insert clause anchors",
}

var anchorsListCmd = &cobra.Command{
	Use:   "list <in.docx>",
	Short: "List the clause anchors of a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}

		anchors, err := newService().ListAnchors(doc)
		if err != nil {
			fatal("Error listing anchors", err)
		}

		if anchorsJSON {
			printJSON(anchors)
			return
		}
		for _, a := range anchors {
			fmt.Printf("%s\t%s\t%s\n", a.Name, a.ClauseID, a.Text)
		}
	},
}

var anchorsClausesCmd = &cobra.Command{
	Use:   "clauses <in.docx>",
	Short: "Print the clauses found at the document's numbered headings",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			fatal("Error reading document", err)
		}
		clauses, err := newService().ExtractClauses(doc)
		if err != nil {
			fatal("Error extracting clauses", err)
		}
		printJSON(clauses)
	},
}

var anchorsInsertCmd = &cobra.Command{
	Use:   "insert <in.docx> [clauses.json]",
	Short: "Bookmark clause headings so issues can target them",
	Long: `Bookmark clause headings so issues can target them. Without a clauses
file the clauses are read from the document's numbered headings.`,
	Args: cobra.RangeArgs(1, 2),
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
		svc := newService()
		var clauses []core.Clause
		if len(args) == 2 {
			clauses, err = readClauses(args[1])
		} else {
			clauses, err = svc.ExtractClauses(doc)
		}
		if err != nil {
			fatal("Error reading clauses", err)
		}

		res, err := svc.InsertAnchors(context.Background(), doc, clauses)
		if err != nil {
			fatal("Error inserting anchors", err)
		}
		if err := fs.WriteFileAtomic(outputPath, res.Document, 0644); err != nil {
			fatal("Error writing document", err)
		}

		printOutcomes(res, anchorsJSON)
		fmt.Printf("%d of %d clause(s) anchored, written to %s\n", res.Applied(), len(res.Outcomes), outputPath)
	},
}

func init() {
	rootCmd.AddCommand(anchorsCmd)
	anchorsCmd.AddCommand(anchorsListCmd, anchorsClausesCmd, anchorsInsertCmd)
	anchorsCmd.PersistentFlags().BoolVar(&anchorsJSON, "json", false, "Output in JSON format")
	anchorsInsertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output .docx path")
}
