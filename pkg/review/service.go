// Package review composes the rule store, the matcher, the payload validator
// and the annotator into the operations a review backend exposes.
package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/introspection"

	"github.com/moshango/Contract-review-sub001/pkg/annotate"
	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/payload"
	"github.com/moshango/Contract-review-sub001/pkg/rules"
	"github.com/moshango/Contract-review-sub001/pkg/store"
)

// Service handles rule lookup, clause matching and payload annotation.
type Service struct {
	source    core.RuleSource
	store     *store.Store
	validator *payload.Validator
	annotator *annotate.Annotator
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithValidator replaces the payload validator.
func WithValidator(v *payload.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithAnnotator replaces the document annotator.
func WithAnnotator(a *annotate.Annotator) Option {
	return func(s *Service) {
		if a != nil {
			s.annotator = a
		}
	}
}

// NewService creates a Service reading rules through st. source is the
// store's source; it is used for watching and state reports and may be nil.
func NewService(source core.RuleSource, st *store.Store, opts ...Option) *Service {
	s := &Service{
		source: source,
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = payload.New(s.logger)
	}
	if s.annotator == nil {
		s.annotator = annotate.New(annotate.WithLogger(s.logger))
	}
	return s
}

// Store returns the underlying rule store.
func (s *Service) Store() *store.Store { return s.store }

// Annotator returns the underlying annotator.
func (s *Service) Annotator() *annotate.Annotator { return s.annotator }

// Rules returns the cached rule set, loading it on first use.
func (s *Service) Rules(ctx context.Context) (core.RuleSet, error) {
	return s.store.Load(ctx)
}

// RulesFor returns the rules applicable to contractType. An empty
// contractType selects only universal rules.
func (s *Service) RulesFor(ctx context.Context, contractType string) (core.RuleSet, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.FilterByContractType(set, contractType), nil
}

// Match returns the rules applicable to contractType that match text.
func (s *Service) Match(ctx context.Context, text, contractType string) (core.RuleSet, error) {
	set, err := s.RulesFor(ctx, contractType)
	if err != nil {
		return nil, err
	}
	return rules.FindMatches(set, text), nil
}

// MatchClause matches one clause and aggregates the result.
func (s *Service) MatchClause(ctx context.Context, clause core.Clause, contractType string) (rules.MatchResult, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return rules.MatchResult{}, err
	}
	return rules.MatchClause(set, clause, contractType), nil
}

// ReviewClauses matches every clause against one snapshot of the rules.
// Only clauses with at least one match are returned, in input order.
func (s *Service) ReviewClauses(ctx context.Context, clauses []core.Clause, contractType string) ([]rules.MatchResult, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]rules.MatchResult, 0, len(clauses))
	for _, c := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res := rules.MatchClause(set, c, contractType); res.Count() > 0 {
			results = append(results, res)
		}
	}
	s.logger.Debug("clauses reviewed",
		"clauses", len(clauses),
		"matched", len(results),
		"contract_type", contractType,
	)
	return results, nil
}

// ValidatePayload reports whether raw is a well-formed review payload.
func (s *Service) ValidatePayload(raw []byte) bool {
	return s.validator.Validate(raw)
}

// CountIssues returns the number of issues in raw, or 0 when it is invalid.
func (s *Service) CountIssues(raw []byte) int {
	return s.validator.CountIssues(raw)
}

// ParsePayload decodes raw or explains why it is invalid.
func (s *Service) ParsePayload(raw []byte) (core.ReviewPayload, error) {
	return s.validator.Parse(raw)
}

// Annotate writes issues into doc.
func (s *Service) Annotate(ctx context.Context, doc []byte, issues []core.ReviewIssue) (*annotate.Result, error) {
	return s.annotator.Annotate(ctx, doc, issues)
}

// AnnotatePayload validates raw and writes its issues into doc. An invalid
// payload fails the call with a *core.ValidationError before doc is read.
func (s *Service) AnnotatePayload(ctx context.Context, doc, raw []byte) (*annotate.Result, error) {
	p, err := s.validator.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.annotator.Annotate(ctx, doc, p.Issues)
}

// ListAnchors returns the clause anchors of doc.
func (s *Service) ListAnchors(doc []byte) ([]annotate.Anchor, error) {
	return annotate.ListAnchors(doc)
}

// ExtractClauses splits doc into clauses at its numbered headings.
func (s *Service) ExtractClauses(doc []byte) ([]core.Clause, error) {
	return annotate.ExtractClauses(doc)
}

// InsertAnchors bookmarks the heading of each clause in doc.
func (s *Service) InsertAnchors(ctx context.Context, doc []byte, clauses []core.Clause) (*annotate.Result, error) {
	return s.annotator.InsertAnchors(ctx, doc, clauses)
}

// Reload re-reads the rule resource and swaps the result in.
func (s *Service) Reload(ctx context.Context) (core.RuleSet, error) {
	return s.store.Reload(ctx)
}

// Invalidate drops the cached rules.
func (s *Service) Invalidate() {
	s.store.Invalidate()
}

// Watch follows the rule resource and reloads the store on change.
func (s *Service) Watch(ctx context.Context) (<-chan core.Event, error) {
	w, ok := s.source.(core.Watchable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrWatchUnsupported, core.ComponentType(s.source, fmt.Sprintf("%T", s.source)))
	}
	return w.Watch(ctx, s.store)
}

// State is the introspection view of a Service.
type State struct {
	Store     any            `json:"store"`
	Source    any            `json:"source,omitempty"`
	Annotator AnnotatorState `json:"annotator"`
	Risks     map[string]int `json:"risks,omitempty"`
}

// AnnotatorState summarizes annotator settings.
type AnnotatorState struct {
	Author          string `json:"author"`
	HeadingFallback bool   `json:"heading_fallback"`
	AnchorFallback  bool   `json:"anchor_fallback"`
	CleanupAnchors  bool   `json:"cleanup_anchors"`
}

// State implements introspection.Introspectable. It never triggers a load.
func (s *Service) State() any {
	opts := s.annotator.Options()
	st := State{
		Store:  s.store.State(),
		Source: core.StateOf(s.source),
		Annotator: AnnotatorState{
			Author:          opts.Author,
			HeadingFallback: opts.HeadingFallback,
			AnchorFallback:  opts.AnchorFallback,
			CleanupAnchors:  opts.CleanupAnchors,
		},
	}
	if set, ok := s.store.Cached(); ok {
		st.Risks = make(map[string]int)
		for _, r := range set {
			st.Risks[strings.ToLower(strings.TrimSpace(r.Risk))]++
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "review-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
