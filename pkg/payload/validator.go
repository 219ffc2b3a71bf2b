// Package payload validates and decodes review payloads: the JSON object
// with an "issues" array exchanged between the reviewer and the annotator.
//
// Validation never fails loudly. Validate answers a boolean and CountIssues
// falls back to zero; callers that need the reason use Parse.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["issues"],
  "properties": {
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["clauseId"],
        "properties": {
          "clauseId":   {"type": "string", "minLength": 1},
          "anchorId":   {"type": ["string", "null"]},
          "severity":   {"type": ["string", "null"]},
          "category":   {"type": ["string", "null"]},
          "finding":    {"type": ["string", "null"]},
          "suggestion": {"type": ["string", "null"]},
          "targetText": {"type": ["string", "null"]},
          "matchPattern": {"type": ["string", "null"]},
          "matchIndex": {"type": ["integer", "null"]}
        }
      }
    }
  }
}`

var (
	schemaLoader = gojsonschema.NewStringLoader(schemaJSON)
	fencePattern = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*(.*?)\\s*```$")
)

// Validator checks review payloads.
type Validator struct {
	// Lenient strips a surrounding Markdown code fence before parsing, as
	// model output often carries one.
	Lenient bool
	Logger  *slog.Logger
}

// New creates a strict validator.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Validator{Logger: logger}
}

// Parse decodes raw into a payload after checking it against the payload
// schema. Errors are *core.ValidationError.
func (v *Validator) Parse(raw []byte) (core.ReviewPayload, error) {
	data := bytes.TrimSpace(raw)
	if v.Lenient {
		data = stripFence(data)
	}
	if len(data) == 0 {
		return core.ReviewPayload{}, &core.ValidationError{Details: []string{"payload is empty"}, Err: core.ErrInvalidPayload}
	}
	if !json.Valid(data) {
		return core.ReviewPayload{}, &core.ValidationError{Details: []string{"payload is not well-formed JSON"}, Err: core.ErrInvalidPayload}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return core.ReviewPayload{}, &core.ValidationError{Err: fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return core.ReviewPayload{}, &core.ValidationError{Details: details, Err: core.ErrInvalidPayload}
	}

	var p core.ReviewPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return core.ReviewPayload{}, &core.ValidationError{Err: fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)}
	}
	if p.Issues == nil {
		p.Issues = []core.ReviewIssue{}
	}
	return p, nil
}

// Validate reports whether raw is a well-formed review payload.
func (v *Validator) Validate(raw []byte) bool {
	p, err := v.Parse(raw)
	if err != nil {
		v.logger().Warn("review payload rejected", "error", err)
		return false
	}
	v.logger().Debug("review payload accepted", "issues", len(p.Issues))
	return true
}

// CountIssues returns the number of issues in raw, or 0 when raw is invalid.
func (v *Validator) CountIssues(raw []byte) int {
	p, err := v.Parse(raw)
	if err != nil {
		return 0
	}
	return len(p.Issues)
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return v.Logger
}

func stripFence(data []byte) []byte {
	if m := fencePattern.FindSubmatch(data); m != nil {
		return bytes.TrimSpace(m[1])
	}
	return data
}

// Validate reports whether raw is a well-formed review payload using a
// strict validator.
func Validate(raw []byte) bool {
	return New(nil).Validate(raw)
}

// CountIssues counts the issues in raw with a strict validator.
func CountIssues(raw []byte) int {
	return New(nil).CountIssues(raw)
}

// Parse decodes raw with a strict validator.
func Parse(raw []byte) (core.ReviewPayload, error) {
	return New(nil).Parse(raw)
}

// Marshal renders a payload the way reviewers are expected to produce it.
func Marshal(p core.ReviewPayload) ([]byte, error) {
	if p.Issues == nil {
		p.Issues = []core.ReviewIssue{}
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
