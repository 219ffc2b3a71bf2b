package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	ErrRulesNotFound      = errors.New("rule resource not found")
	ErrNoRules            = errors.New("rule resource contains no rules")
	ErrUnsupportedFormat  = errors.New("unsupported rule format")
	ErrEmptyChecklist     = errors.New("checklist is empty")
	ErrMissingRisk        = errors.New("risk is empty")
	ErrDuplicateRuleID    = errors.New("duplicate rule id")
	ErrInvalidPattern     = errors.New("invalid rule pattern")
	ErrInvalidPayload     = errors.New("invalid review payload")
	ErrAnchorNotFound     = errors.New("anchor not found")
	ErrClauseNotFound     = errors.New("no anchor or heading for clause")
	ErrMissingClauseID    = errors.New("clause id is empty")
	ErrMissingPart        = errors.New("package part missing")
	ErrMalformedDocument  = errors.New("malformed document")
	ErrParagraphNotFound  = errors.New("anchor is not inside a paragraph")
	ErrAnnotationCanceled = errors.New("annotation canceled")
	ErrWatchUnsupported   = errors.New("rule source does not support watching")
	ErrTargetNotFound     = errors.New("target text not found in paragraph")
)

// RuleLoadError describes why the rule resource could not be turned into a
// rule set. Row is 0 when the failure is not tied to a specific row.
type RuleLoadError struct {
	Source string
	Row    int
	Field  string
	Err    error
}

func (e *RuleLoadError) Error() string {
	var b strings.Builder
	b.WriteString("load rules")
	if e.Source != "" {
		fmt.Fprintf(&b, " from %s", e.Source)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *RuleLoadError) Unwrap() error { return e.Err }

// ValidationError is returned when a review payload fails structural or
// schema checks.
type ValidationError struct {
	Details []string
	Err     error
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%v: %v", ErrInvalidPayload, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidPayload, strings.Join(e.Details, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AnchorResolutionError records an issue whose location could not be found
// in the document. Index is the position of the issue in the batch.
type AnchorResolutionError struct {
	Index    int
	ClauseID string
	AnchorID string
	Err      error
}

func (e *AnchorResolutionError) Error() string {
	if e.AnchorID != "" {
		return fmt.Sprintf("issue %d (clause %q, anchor %q): %v", e.Index, e.ClauseID, e.AnchorID, e.Err)
	}
	return fmt.Sprintf("issue %d (clause %q): %v", e.Index, e.ClauseID, e.Err)
}

func (e *AnchorResolutionError) Unwrap() error { return e.Err }

// SerializationError is returned when a modified package part cannot be
// written back.
type SerializationError struct {
	Part string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Part, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DocumentError is returned when the source document cannot be read.
type DocumentError struct {
	Part string
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("read document: %v", e.Err)
	}
	return fmt.Sprintf("read document part %s: %v", e.Part, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
