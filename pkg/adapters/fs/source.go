// Package fs provides the file-backed rule source: locating the rule file,
// decoding it by extension, fingerprinting what was read and watching it for
// changes.
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/rules"
)

// DefaultCandidates are the globs searched, in order, when no explicit rule
// path is configured. They are relative to Config.Root.
var DefaultCandidates = []string{
	"{rules,review_rules,review-rules}.{xlsx,csv,yaml,yml,json}",
	"{config,configs,rules,resources,review}/{rules,review_rules,review-rules}.{xlsx,csv,yaml,yml,json}",
	"**/review/rules.{xlsx,csv,yaml,yml,json}",
}

// DefaultWatchDebounce coalesces bursts of writes to the rule file.
const DefaultWatchDebounce = 100 * time.Millisecond

// Config holds the configuration for a FileSource.
type Config struct {
	// Path names the rule file explicitly. Relative paths resolve against Root.
	Path string
	// Root is the directory searched with Candidates. Defaults to ".".
	Root string
	// Candidates are doublestar globs tried when Path is empty.
	Candidates []string
	// Sheet selects the XLSX worksheet.
	Sheet string
	// Decoders overrides or extends the default decoders, keyed by extension.
	Decoders map[string]Decoder

	Logger        *slog.Logger
	ErrorHandler  func(error)
	WatchDebounce time.Duration
	// WatchPattern filters watcher events by base name. Defaults to the
	// resolved file's base name.
	WatchPattern string
}

// FileSource implements core.RuleSource over a file on disk.
type FileSource struct {
	config   Config
	decoders map[string]Decoder

	mu            sync.RWMutex
	resolved      string
	last          *Fingerprint
	lastLoad      *time.Time
	loads         int
	watcherActive bool
}

// NewFileSource creates a source. Nothing is read until Load.
func NewFileSource(cfg Config) *FileSource {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if len(cfg.Candidates) == 0 && cfg.Path == "" {
		cfg.Candidates = DefaultCandidates
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = DefaultWatchDebounce
	}

	decoders := DefaultDecoders(cfg.Sheet)
	for ext, d := range cfg.Decoders {
		decoders[normalizeExt(ext)] = d
	}

	return &FileSource{config: cfg, decoders: decoders}
}

// Name returns the configured path, or the resolved one once known.
func (s *FileSource) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.resolved != "" {
		return s.resolved
	}
	if s.config.Path != "" {
		return s.config.Path
	}
	return filepath.Join(s.config.Root, "<rules>")
}

// Resolve returns the absolute path of the rule file, searching the
// candidates when no explicit path is set.
func (s *FileSource) Resolve() (string, error) {
	if s.config.Path != "" {
		path := s.config.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.config.Root, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", core.ErrRulesNotFound, abs)
			}
			return "", err
		}
		return abs, nil
	}

	root, err := filepath.Abs(s.config.Root)
	if err != nil {
		return "", err
	}
	fsys := os.DirFS(root)
	for _, pattern := range s.config.Candidates {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return "", fmt.Errorf("invalid candidate pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := s.decoders[normalizeExt(filepath.Ext(m))]; ok {
				return filepath.Join(root, filepath.FromSlash(m)), nil
			}
		}
	}
	return "", fmt.Errorf("%w: no candidate matched under %s", core.ErrRulesNotFound, root)
}

// Load reads, decodes and builds the rule set. Any failure is returned as a
// *core.RuleLoadError and no partial set is produced.
func (s *FileSource) Load(ctx context.Context) (core.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.RuleLoadError{Source: s.Name(), Err: err}
	}

	path, err := s.Resolve()
	if err != nil {
		return nil, &core.RuleLoadError{Source: s.Name(), Err: err}
	}

	decoder, ok := s.decoders[normalizeExt(filepath.Ext(path))]
	if !ok {
		return nil, &core.RuleLoadError{Source: path, Err: fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(path))}
	}

	data, fp, err := readWithFingerprint(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %v", core.ErrRulesNotFound, err)
		}
		return nil, &core.RuleLoadError{Source: path, Err: err}
	}

	rows, err := decoder.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &core.RuleLoadError{Source: path, Err: err}
	}

	set, err := rules.Build(ctx, path, rows)
	if err != nil {
		return nil, err
	}

	s.recordLoad(path, fp)
	s.config.Logger.Debug("rules decoded", "path", path, "rows", len(rows), "rules", len(set))
	return set, nil
}

// Changed reports whether the rule file differs from the last successful
// load. It is true when nothing has been loaded yet or the file vanished.
func (s *FileSource) Changed() (bool, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil {
		return true, nil
	}
	return changedSince(*last)
}

// Fingerprint returns the fingerprint of the last successful load.
func (s *FileSource) Fingerprint() (Fingerprint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Fingerprint{}, false
	}
	return *s.last, true
}

func (s *FileSource) recordLoad(path string, fp Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.resolved = path
	s.last = &fp
	s.lastLoad = &now
	s.loads++
}

func (s *FileSource) handleError(err error) {
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
		return
	}
	s.config.Logger.Error("rule source error", "error", err)
}

var _ core.RuleSource = (*FileSource)(nil)
