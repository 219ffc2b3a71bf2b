package contractreview

import (
	"log/slog"
	"time"

	"github.com/moshango/Contract-review-sub001/internal/platform"
	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/review"
)

// --- Types ---

// Service is the review service returned by New.
type Service = review.Service

// Config is the review.yaml configuration.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring the review service.
type Option = platform.Option

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithSource allows injecting a custom rule source.
func WithSource(src core.RuleSource) Option {
	return platform.WithSource(src)
}

// WithRulesPath names the rule file.
func WithRulesPath(path string) Option {
	return platform.WithRulesPath(path)
}

// WithRulesRoot sets the directory searched for rule files.
func WithRulesRoot(dir string) Option {
	return platform.WithRulesRoot(dir)
}

// WithCandidates replaces the glob patterns used to find the rule file.
func WithCandidates(patterns ...string) Option {
	return platform.WithCandidates(patterns...)
}

// WithSheet selects the XLSX worksheet holding the rules.
func WithSheet(name string) Option {
	return platform.WithSheet(name)
}

// WithEvents publishes rule store events on ch.
func WithEvents(ch chan<- core.Event) Option {
	return platform.WithEvents(ch)
}

// WithWatchDebounce sets the settle time of the rule watcher.
func WithWatchDebounce(d time.Duration) Option {
	return platform.WithWatchDebounce(d)
}

// WithWatcherErrorHandler registers a callback for watcher errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithLenientPayload accepts payloads wrapped in a Markdown code fence.
func WithLenientPayload(enabled bool) Option {
	return platform.WithLenientPayload(enabled)
}

// WithAuthor sets the author and initials of inserted comments.
func WithAuthor(author, initials string) Option {
	return platform.WithAuthor(author, initials)
}

// WithClock sets the clock used to date comments.
func WithClock(clock func() time.Time) Option {
	return platform.WithClock(clock)
}

// WithHeadingFallback toggles locating unanchored clauses by heading.
func WithHeadingFallback(enabled bool) Option {
	return platform.WithHeadingFallback(enabled)
}

// WithAnchorFallback toggles retrying unknown anchors by clause id.
func WithAnchorFallback(enabled bool) Option {
	return platform.WithAnchorFallback(enabled)
}

// WithCleanupAnchors removes anchor bookmarks from annotated documents.
func WithCleanupAnchors(enabled bool) Option {
	return platform.WithCleanupAnchors(enabled)
}

// --- Factory ---

// New creates a new review service.
func New(opts ...Option) (*Service, error) {
	return platform.New(opts...)
}

// LoadConfig reads a review.yaml file and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	return platform.LoadConfig(path)
}

// FindRoot recursively looks upwards for a review workspace marker.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
