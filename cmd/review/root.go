package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	contractreview "github.com/moshango/Contract-review-sub001"
)

var (
	verbose    bool
	rulesPath  string
	configPath string

	config    *contractreview.Config
	configDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "review",
	Short: "Rule matching and Word annotation for contract review",
	Long: `review matches contract clauses against a rule table and writes review
findings back into .docx files as native Word comments.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		path := resolveConfigPath()
		cfg, err := contractreview.LoadConfig(path)
		if err != nil {
			fatal("Failed to load config", err)
		}
		config = cfg
		configDir = filepath.Dir(path)

		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Rule table (xlsx, csv, yaml or json)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: review.yaml in the workspace root)")
}

// resolveConfigPath prefers --config, then review.yaml at the workspace root,
// then review.yaml in the working directory.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if root, err := contractreview.FindRoot("."); err == nil {
		return filepath.Join(root, "review.yaml")
	}
	return "review.yaml"
}

// newService builds the service from the loaded config and global flags.
func newService(extra ...contractreview.Option) *contractreview.Service {
	// Rule files are searched next to the config unless it says otherwise.
	opts := []contractreview.Option{contractreview.WithRulesRoot(configDir)}
	if config != nil {
		opts = append(opts, config.Options()...)
	}
	if rulesPath != "" {
		abs, err := filepath.Abs(rulesPath)
		if err != nil {
			fatal("Failed to resolve rules path", err)
		}
		opts = append(opts, contractreview.WithRulesPath(abs))
	}
	opts = append(opts, contractreview.WithLogger(slog.Default()))
	opts = append(opts, extra...)

	svc, err := contractreview.New(opts...)
	if err != nil {
		fatal("Failed to initialize review service", err)
	}
	return svc
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Error encoding JSON", err)
	}
}
