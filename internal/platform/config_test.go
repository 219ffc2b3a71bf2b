package platform

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Missing File Yields Defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile))
		require.NoError(t, err)
		assert.Equal(t, &Config{}, cfg)
		assert.Equal(t, slog.LevelInfo, cfg.Level())
	})

	t.Run("Reads File", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ConfigFile)
		require.NoError(t, os.WriteFile(path, []byte(`
rules:
  root: config
  sheet: 规则
log_level: debug
annotation:
  author: 法务部
  initials: FW
  heading_fallback: false
  cleanup_anchors: true
payload:
  lenient: true
`), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "config"), cfg.Rules.Root)
		assert.Equal(t, "规则", cfg.Rules.Sheet)
		assert.Equal(t, slog.LevelDebug, cfg.Level())
		assert.Equal(t, "法务部", cfg.Annotation.Author)
		require.NotNil(t, cfg.Annotation.HeadingFallback)
		assert.False(t, *cfg.Annotation.HeadingFallback)
		assert.True(t, cfg.Payload.Lenient)

		o := defaultOptions()
		for _, opt := range cfg.Options() {
			opt(o)
		}
		assert.Equal(t, filepath.Join(dir, "config"), o.rulesRoot)
		assert.Equal(t, "规则", o.sheet)
		assert.Equal(t, "法务部", o.annotate.Author)
		assert.Equal(t, "FW", o.annotate.Initials)
		assert.False(t, o.annotate.HeadingFallback)
		assert.True(t, o.annotate.CleanupAnchors)
		assert.True(t, o.lenient)
	})

	t.Run("Environment Overrides File", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ConfigFile)
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  path: rules.csv\nlog_level: warn\n"), 0644))

		t.Setenv(EnvRulesPath, "/srv/rules.xlsx")
		t.Setenv(EnvLogLevel, "error")
		t.Setenv(EnvCommentAuthor, "审查组")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/rules.xlsx", cfg.Rules.Path)
		assert.Equal(t, slog.LevelError, cfg.Level())
		assert.Equal(t, "审查组", cfg.Annotation.Author)
	})

	t.Run("Relative Path Resolves Against File", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ConfigFile)
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  path: rules.csv\n"), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "rules.csv"), cfg.Rules.Path)
	})

	t.Run("Malformed File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFile)
		require.NoError(t, os.WriteFile(path, []byte("rules: [unclosed"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("Empty Author Keeps Default", func(t *testing.T) {
		o := defaultOptions()
		for _, opt := range (&Config{}).Options() {
			opt(o)
		}
		assert.Equal(t, "AI审查助手", o.annotate.Author)
		assert.True(t, o.annotate.HeadingFallback)
	})
}
