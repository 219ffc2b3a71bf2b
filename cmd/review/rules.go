package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/rules"
)

var (
	rulesJSON    bool
	contractType string
	filterRisk   string
	matchText    string
	clausesFile  string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and match review rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded rules",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService()
		ctx := context.Background()

		var (
			set core.RuleSet
			err error
		)
		if cmd.Flags().Changed("contract-type") {
			set, err = svc.RulesFor(ctx, contractType)
		} else {
			set, err = svc.Rules(ctx)
		}
		if err != nil {
			fatal("Error loading rules", err)
		}
		if filterRisk != "" {
			set = rules.FilterByRisk(set, filterRisk)
		}

		if rulesJSON {
			printJSON(set)
			return
		}

		for _, r := range set {
			scope := "通用"
			if len(r.ContractTypes) > 0 {
				scope = strings.Join(r.ContractTypes, ",")
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", r.ID, r.Risk, scope, r.Checklist)
		}
	},
}

var rulesMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match clause text against the rules",
	Long: `Match a single text with --text, or a JSON array of clauses
({"id","heading","text"}) with --clauses.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if matchText == "" && clausesFile == "" {
			fmt.Println("Error: --text or --clauses is required")
			cmd.Usage()
			os.Exit(1)
		}

		svc := newService()
		ctx := context.Background()

		if clausesFile != "" {
			clauses, err := readClauses(clausesFile)
			if err != nil {
				fatal("Error reading clauses", err)
			}
			results, err := svc.ReviewClauses(ctx, clauses, contractType)
			if err != nil {
				fatal("Error matching clauses", err)
			}
			if rulesJSON {
				printJSON(results)
				return
			}
			for _, res := range results {
				fmt.Printf("%s %s [%s] %d rule(s)\n", res.Clause.ID, res.Clause.Heading, res.HighestRisk(), res.Count())
				fmt.Printf("  %s\n", strings.ReplaceAll(res.Checklist(), "\n", "\n  "))
			}
			return
		}

		matched, err := svc.Match(ctx, matchText, contractType)
		if err != nil {
			fatal("Error matching text", err)
		}
		if rulesJSON {
			printJSON(matched)
			return
		}
		for _, r := range matched {
			fmt.Printf("%s\t%s\t%s\n", r.ID, r.Risk, strings.Join(rules.MatchedKeywords(r, matchText), ","))
		}
	},
}

func readClauses(path string) ([]core.Clause, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var clauses []core.Clause
	if err := json.Unmarshal(data, &clauses); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return clauses, nil
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesMatchCmd)

	rulesCmd.PersistentFlags().BoolVar(&rulesJSON, "json", false, "Output in JSON format")
	rulesCmd.PersistentFlags().StringVar(&contractType, "contract-type", "", "Contract type; empty selects universal rules only")
	rulesListCmd.Flags().StringVar(&filterRisk, "risk", "", "Filter rules by risk level")
	rulesMatchCmd.Flags().StringVar(&matchText, "text", "", "Clause text to match")
	rulesMatchCmd.Flags().StringVar(&clausesFile, "clauses", "", "JSON file with clauses to review")
}
