// Package annotate writes review findings into DOCX documents as Word
// comments.
//
// Each issue is attached to a paragraph found through its anchor bookmark
// (anchorId), the clause's anchors (clauseId), or, failing both, the
// clause heading. Comment ranges wrap the whole paragraph, or only the runs
// holding the issue's targetText when it is found there. Everything the
// annotator does not add is written back byte for byte, and the source
// slice is never modified.
package annotate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

// Comment metadata defaults.
const (
	DefaultAuthor   = "AI审查助手"
	DefaultInitials = "AI"
)

// Options controls annotation.
type Options struct {
	Author   string
	Initials string
	// Clock stamps comment dates. Defaults to time.Now.
	Clock func() time.Time
	// HeadingFallback locates a clause by its numbered heading when the
	// document has no anchor for it.
	HeadingFallback bool
	// AnchorFallback retries by clauseId when an explicit anchorId is not
	// in the document.
	AnchorFallback bool
	// CleanupAnchors removes anc- bookmarks from the output.
	CleanupAnchors bool
}

// DefaultOptions returns the options New starts from.
func DefaultOptions() Options {
	return Options{
		Author:          DefaultAuthor,
		Initials:        DefaultInitials,
		Clock:           time.Now,
		HeadingFallback: true,
	}
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLogger sets the annotator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Annotator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithOptions replaces all annotation options.
func WithOptions(opts Options) Option {
	return func(a *Annotator) {
		a.opts = opts
	}
}

// WithAuthor sets the comment author and initials.
func WithAuthor(author, initials string) Option {
	return func(a *Annotator) {
		a.opts.Author, a.opts.Initials = author, initials
	}
}

// WithClock sets the clock used for comment dates.
func WithClock(clock func() time.Time) Option {
	return func(a *Annotator) {
		a.opts.Clock = clock
	}
}

// WithHeadingFallback toggles heading lookup for clauses without anchors.
func WithHeadingFallback(enabled bool) Option {
	return func(a *Annotator) {
		a.opts.HeadingFallback = enabled
	}
}

// WithAnchorFallback toggles clause lookup for unknown anchor ids.
func WithAnchorFallback(enabled bool) Option {
	return func(a *Annotator) {
		a.opts.AnchorFallback = enabled
	}
}

// WithCleanupAnchors toggles removal of anchor bookmarks from the output.
func WithCleanupAnchors(enabled bool) Option {
	return func(a *Annotator) {
		a.opts.CleanupAnchors = enabled
	}
}

// Annotator inserts comments into documents. It holds no per-document state
// and is safe for concurrent use.
type Annotator struct {
	opts   Options
	logger *slog.Logger
}

// New creates an annotator.
func New(opts ...Option) *Annotator {
	a := &Annotator{
		opts:   DefaultOptions(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.opts.Clock == nil {
		a.opts.Clock = time.Now
	}
	return a
}

// Options returns the effective options.
func (a *Annotator) Options() Options {
	return a.opts
}

// Outcome reports what happened to one input item.
type Outcome struct {
	Index     int    `json:"index"`
	ClauseID  string `json:"clauseId"`
	AnchorID  string `json:"anchorId,omitempty"`
	CommentID string `json:"commentId,omitempty"`
	Applied   bool   `json:"applied"`
	// Precise is set when the comment covers only the runs holding the
	// issue's target text.
	Precise   bool   `json:"precise,omitempty"`
	Err       error  `json:"-"`
}

// Result is an annotated document plus per-item outcomes in input order.
type Result struct {
	RunID    string    `json:"runId,omitempty"`
	Document []byte    `json:"-"`
	Outcomes []Outcome `json:"outcomes"`
	// AnchorsRemoved counts bookmarks dropped by CleanupAnchors.
	AnchorsRemoved int `json:"anchorsRemoved,omitempty"`
}

// Applied counts the items that were written.
func (r *Result) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Applied {
			n++
		}
	}
	return n
}

// Skipped returns the outcomes that were not applied.
func (r *Result) Skipped() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Applied {
			out = append(out, o)
		}
	}
	return out
}

// Annotate returns a copy of src with one comment per resolvable issue.
// Issues that cannot be placed are skipped and reported in the outcomes.
// The returned error is reserved for unreadable input, cancellation and
// failures to write the result.
func (a *Annotator) Annotate(ctx context.Context, src []byte, issues []core.ReviewIssue) (*Result, error) {
	runID := uuid.NewString()
	log := a.logger.With("run_id", runID)
	start := time.Now()

	pkg, tree, n, err := openDocument(src)
	if err != nil {
		log.Error("document rejected", "error", err)
		return nil, err
	}
	docPart := pkg.MainDocument()
	commentsPart := path.Join(path.Dir(docPart), "comments.xml")

	cm, err := loadComments(pkg, commentsPart)
	if err != nil {
		log.Error("comments part rejected", "error", err)
		return nil, err
	}

	d := newDocument(tree, n)
	d.headingFallback = a.opts.HeadingFallback
	d.anchorFallback = a.opts.AnchorFallback

	nextID := max(cm.maxID(), d.maxCommentID()) + 1
	meta := commentMeta{
		author:   a.opts.Author,
		initials: a.opts.Initials,
		date:     a.opts.Clock().UTC().Format(time.RFC3339),
	}

	res := &Result{RunID: runID, Outcomes: make([]Outcome, 0, len(issues))}
	for i, issue := range issues {
		if err := ctx.Err(); err != nil {
			log.Warn("annotation canceled", "processed", i, "issues", len(issues))
			return nil, fmt.Errorf("%w: %w", core.ErrAnnotationCanceled, err)
		}

		o := Outcome{Index: i, ClauseID: issue.ClauseID, AnchorID: issue.AnchorID}
		para, err := d.resolve(issue)
		if err != nil {
			o.Err = &core.AnchorResolutionError{Index: i, ClauseID: issue.ClauseID, AnchorID: issue.AnchorID, Err: err}
			log.Warn("issue skipped", "index", i, "clause", issue.ClauseID, "anchor", issue.AnchorID, "error", err)
			res.Outcomes = append(res.Outcomes, o)
			continue
		}

		if err := a.place(d, para, issue, nextID, &o, log); err != nil {
			return nil, &core.SerializationError{Part: docPart, Err: err}
		}
		if err := cm.add(nextID, issue, meta); err != nil {
			return nil, &core.SerializationError{Part: commentsPart, Err: err}
		}
		o.CommentID = fmt.Sprint(nextID)
		o.Applied = true
		res.Outcomes = append(res.Outcomes, o)
		log.Debug("comment inserted", "index", i, "clause", issue.ClauseID, "comment_id", nextID)
		nextID++
	}

	if a.opts.CleanupAnchors {
		res.AnchorsRemoved = d.removeAnchors()
	}

	if res.Applied() > 0 {
		pkg.PutTree(commentsPart, cm.tree)
		if err := pkg.EnsureOverride("/"+commentsPart, docx.ContentTypeComments); err != nil {
			return nil, &core.SerializationError{Part: docx.ContentTypesPart, Err: err}
		}
		if _, err := pkg.EnsureRelationship(docPart, docx.RelTypeComments, path.Base(commentsPart)); err != nil {
			return nil, &core.SerializationError{Part: docx.RelsPartFor(docPart), Err: err}
		}
	}
	if res.Applied() > 0 || res.AnchorsRemoved > 0 {
		pkg.PutTree(docPart, tree)
	}

	out, err := pkg.Bytes()
	if err != nil {
		return nil, &core.SerializationError{Part: "package", Err: err}
	}
	res.Document = out

	log.Info("document annotated",
		"issues", len(issues),
		"applied", res.Applied(),
		"skipped", len(issues)-res.Applied(),
		"comments_created", cm.created && res.Applied() > 0,
		"duration", time.Since(start),
	)
	return res, nil
}

// place brackets the target text of issue when it is found in para, and the
// whole paragraph otherwise.
func (a *Annotator) place(d *document, para *docx.Node, issue core.ReviewIssue, id int, o *Outcome, log *slog.Logger) error {
	if issue.TargetText != "" {
		sp, err := d.locate(para, issue)
		if err == nil {
			o.Precise = true
			return d.bracketRuns(sp, id)
		}
		log.Debug("target text not placed, commenting whole paragraph",
			"index", o.Index,
			"target", issue.TargetText,
			"pattern", issue.MatchPattern,
			"error", err,
		)
	}
	return d.bracket(para, id)
}
