package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	contractreview "github.com/moshango/Contract-review-sub001"
	"github.com/moshango/Contract-review-sub001/pkg/core"
)

var risks = []string{"high", "medium", "low"}

func main() {
	count := flag.Int("count", 1000, "Number of rules to generate")
	clauses := flag.Int("clauses", 200, "Number of clauses to review")
	keep := flag.Bool("keep", false, "Keep the benchmark directory after running")
	flag.Parse()

	// 1. Setup
	benchDir, err := os.MkdirTemp("", "review_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d rules in %s...\n", *count, benchDir)
	startGen := time.Now()

	var b strings.Builder
	b.WriteString("id,contract_types,risk,keywords,checklist,suggest_A,suggest_B\n")
	for i := 0; i < *count; i++ {
		types := "通用"
		if i%4 == 0 {
			types = "采购合同;技术服务合同"
		}
		fmt.Fprintf(&b, "rule-%d,%s,%s,关键词%d;条款%d,检查事项%d,甲方建议%d,乙方建议%d\n",
			i, types, risks[i%len(risks)], i, i%50, i, i, i)
	}
	if err := os.WriteFile(filepath.Join(benchDir, "rules.csv"), []byte(b.String()), 0644); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// 2. Initialize Service
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	service, err := contractreview.New(
		contractreview.WithRulesRoot(benchDir),
		contractreview.WithLogger(logger),
	)
	if err != nil {
		panic(err)
	}

	ctx := context.TODO()

	// Run 1: Cold (reads and parses the table)
	fmt.Println("Loading rules (Run 1 - Cold)...")
	startCold := time.Now()
	set, err := service.Rules(ctx)
	if err != nil {
		panic(err)
	}
	cold := time.Since(startCold)
	fmt.Printf("Run 1 Result: %v (Rules: %d)\n", cold, len(set))

	// Run 2: Warm (served from the store)
	fmt.Println("Loading rules (Run 2 - Warm)...")
	startWarm := time.Now()
	if _, err := service.Rules(ctx); err != nil {
		panic(err)
	}
	warm := time.Since(startWarm)
	fmt.Printf("Run 2 Result: %v\n", warm)

	// Run 3: Review
	input := make([]core.Clause, *clauses)
	for i := range input {
		input[i] = core.Clause{
			ID:      fmt.Sprintf("c%d", i+1),
			Heading: fmt.Sprintf("第%d条", i+1),
			Text:    fmt.Sprintf("本条款涉及条款%d与关键词%d的约定。", i%50, (i*7)%max(*count, 1)),
		}
	}
	fmt.Println("Reviewing clauses (Run 3)...")
	startReview := time.Now()
	results, err := service.ReviewClauses(ctx, input, "采购合同")
	if err != nil {
		panic(err)
	}
	review := time.Since(startReview)
	fmt.Printf("Run 3 Result: %v (Matched clauses: %d)\n", review, len(results))

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d rules, %d clauses):\n", *count, *clauses)
	fmt.Printf("  Cold load: %v\n", cold)
	fmt.Printf("  Warm load: %v\n", warm)
	fmt.Printf("  Review:    %v\n", review)
	fmt.Printf("--------------------------------------------------\n")
}
