package platform

import (
	"log/slog"
	"time"

	"github.com/moshango/Contract-review-sub001/pkg/annotate"
	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// options holds the internal configuration for the review service.
type options struct {
	source       core.RuleSource
	logger       *slog.Logger
	rulesPath    string
	rulesRoot    string
	candidates   []string
	sheet        string
	events       chan<- core.Event
	debounce     time.Duration
	lenient      bool
	errorHandler func(error)
	annotate     annotate.Options
}

// Option defines a functional option for configuring the review service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		rulesRoot: ".",
		annotate:  annotate.DefaultOptions(),
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSource allows injecting a custom rule source (e.g. database, HTTP).
// If provided, the default file source is skipped and path options are
// ignored.
func WithSource(src core.RuleSource) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithRulesPath names the rule file. Relative paths resolve against the
// rules root.
func WithRulesPath(path string) Option {
	return func(o *options) {
		o.rulesPath = path
	}
}

// WithRulesRoot sets the directory searched for rule files. Defaults to ".".
func WithRulesRoot(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.rulesRoot = dir
		}
	}
}

// WithCandidates replaces the glob patterns tried when no rules path is set.
func WithCandidates(patterns ...string) Option {
	return func(o *options) {
		o.candidates = patterns
	}
}

// WithSheet selects the worksheet read from XLSX rule files.
func WithSheet(name string) Option {
	return func(o *options) {
		o.sheet = name
	}
}

// WithEvents publishes rule store events on ch.
func WithEvents(ch chan<- core.Event) Option {
	return func(o *options) {
		o.events = ch
	}
}

// WithWatchDebounce sets how long the rule watcher waits for writes to
// settle before reloading.
func WithWatchDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithWatcherErrorHandler registers a callback for errors raised while the
// rule file is being watched (e.g. permission denied, failed reloads).
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithLenientPayload accepts review payloads wrapped in a Markdown code
// fence.
func WithLenientPayload(enabled bool) Option {
	return func(o *options) {
		o.lenient = enabled
	}
}

// WithAuthor sets the author and initials of inserted comments.
func WithAuthor(author, initials string) Option {
	return func(o *options) {
		if author != "" {
			o.annotate.Author = author
		}
		if initials != "" {
			o.annotate.Initials = initials
		}
	}
}

// WithClock sets the clock used to date comments.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.annotate.Clock = clock
	}
}

// WithHeadingFallback toggles locating clauses by their numbered heading
// when a document has no anchor for them. Enabled by default.
func WithHeadingFallback(enabled bool) Option {
	return func(o *options) {
		o.annotate.HeadingFallback = enabled
	}
}

// WithAnchorFallback toggles retrying by clause id when an issue's anchor id
// is not in the document. Disabled by default.
func WithAnchorFallback(enabled bool) Option {
	return func(o *options) {
		o.annotate.AnchorFallback = enabled
	}
}

// WithCleanupAnchors removes anchor bookmarks from annotated documents.
func WithCleanupAnchors(enabled bool) Option {
	return func(o *options) {
		o.annotate.CleanupAnchors = enabled
	}
}
