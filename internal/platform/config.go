package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the name of the optional configuration file.
const ConfigFile = "review.yaml"

// Environment overrides applied by LoadConfig.
const (
	EnvRulesPath     = "REVIEW_RULES_PATH"
	EnvLogLevel      = "REVIEW_LOG_LEVEL"
	EnvCommentAuthor = "REVIEW_COMMENT_AUTHOR"
)

// Config is the on-disk configuration.
type Config struct {
	Rules      RulesConfig      `yaml:"rules"`
	Annotation AnnotationConfig `yaml:"annotation"`
	Payload    PayloadConfig    `yaml:"payload"`
	LogLevel   string           `yaml:"log_level"`
}

// RulesConfig locates the rule table.
type RulesConfig struct {
	Path       string   `yaml:"path"`
	Root       string   `yaml:"root"`
	Sheet      string   `yaml:"sheet"`
	Candidates []string `yaml:"candidates"`
}

// AnnotationConfig controls comment insertion. HeadingFallback is a pointer
// so an absent key keeps the default.
type AnnotationConfig struct {
	Author          string `yaml:"author"`
	Initials        string `yaml:"initials"`
	HeadingFallback *bool  `yaml:"heading_fallback"`
	AnchorFallback  bool   `yaml:"anchor_fallback"`
	CleanupAnchors  bool   `yaml:"cleanup_anchors"`
}

// PayloadConfig controls review payload parsing. Lenient accepts payloads
// wrapped in a Markdown code fence.
type PayloadConfig struct {
	Lenient bool `yaml:"lenient"`
}

// LoadConfig reads path and applies environment overrides. A missing file
// yields the defaults. Relative rule paths in the file resolve against the
// file's directory.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		dir := filepath.Dir(path)
		if cfg.Rules.Root != "" && !filepath.IsAbs(cfg.Rules.Root) {
			cfg.Rules.Root = filepath.Join(dir, cfg.Rules.Root)
		}
		if cfg.Rules.Path != "" && !filepath.IsAbs(cfg.Rules.Path) && cfg.Rules.Root == "" {
			cfg.Rules.Path = filepath.Join(dir, cfg.Rules.Path)
		}
	}

	if v := os.Getenv(EnvRulesPath); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvCommentAuthor); v != "" {
		cfg.Annotation.Author = v
	}
	return cfg, nil
}

// Level parses LogLevel. Unknown or empty values map to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Options converts the configuration into service options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Rules.Path != "" {
		opts = append(opts, WithRulesPath(c.Rules.Path))
	}
	if c.Rules.Root != "" {
		opts = append(opts, WithRulesRoot(c.Rules.Root))
	}
	if c.Rules.Sheet != "" {
		opts = append(opts, WithSheet(c.Rules.Sheet))
	}
	if len(c.Rules.Candidates) > 0 {
		opts = append(opts, WithCandidates(c.Rules.Candidates...))
	}

	a := c.Annotation
	opts = append(opts,
		WithAuthor(a.Author, a.Initials),
		WithAnchorFallback(a.AnchorFallback),
		WithCleanupAnchors(a.CleanupAnchors),
		WithLenientPayload(c.Payload.Lenient),
	)
	if a.HeadingFallback != nil {
		opts = append(opts, WithHeadingFallback(*a.HeadingFallback))
	}
	return opts
}
