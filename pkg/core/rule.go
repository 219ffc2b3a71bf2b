package core

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// DefaultPartyScope is used when a rule does not name the party it protects.
const DefaultPartyScope = "Neutral"

// ReviewRule is a single review heuristic loaded from the rule resource.
// Rules are immutable once built; callers must not mutate shared values.
type ReviewRule struct {
	ID            string   `json:"id" yaml:"id"`
	ContractTypes []string `json:"contractTypes,omitempty" yaml:"contract_types,omitempty"`
	PartyScope    string   `json:"partyScope,omitempty" yaml:"party_scope,omitempty"`
	Risk          string   `json:"risk" yaml:"risk"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Pattern       string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Checklist     string   `json:"checklist" yaml:"checklist"`
	SuggestA      string   `json:"suggestA,omitempty" yaml:"suggest_a,omitempty"`
	SuggestB      string   `json:"suggestB,omitempty" yaml:"suggest_b,omitempty"`

	re *regexp.Regexp
}

// Compile prepares the optional Pattern. It must be called before the rule
// is published; an empty pattern is a no-op.
func (r *ReviewRule) Compile() error {
	if strings.TrimSpace(r.Pattern) == "" {
		r.re = nil
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	r.re = re
	return nil
}

// Regexp returns the compiled pattern, or nil when the rule has none.
func (r ReviewRule) Regexp() *regexp.Regexp {
	return r.re
}

// Universal reports whether the rule applies to every contract type.
func (r ReviewRule) Universal() bool {
	return len(r.ContractTypes) == 0
}

// AppliesTo reports whether the rule applies to the given contract type.
func (r ReviewRule) AppliesTo(contractType string) bool {
	if r.Universal() {
		return true
	}
	t := strings.TrimSpace(contractType)
	for _, ct := range r.ContractTypes {
		if strings.TrimSpace(ct) == t {
			return true
		}
	}
	return false
}

// RuleSet is an ordered collection of rules.
type RuleSet []ReviewRule

// IDs returns the rule identifiers in order.
func (s RuleSet) IDs() []string {
	ids := make([]string, len(s))
	for i, r := range s {
		ids[i] = r.ID
	}
	return ids
}

// Find returns the rule with the given id.
func (s RuleSet) Find(id string) (ReviewRule, bool) {
	i := slices.IndexFunc(s, func(r ReviewRule) bool { return r.ID == id })
	if i < 0 {
		return ReviewRule{}, false
	}
	return s[i], true
}

// Clone returns a deep copy of the set. Keyword and contract-type slices
// are copied so callers cannot reach a cached snapshot through them; the
// compiled pattern is immutable and stays shared.
func (s RuleSet) Clone() RuleSet {
	if s == nil {
		return nil
	}
	out := slices.Clone(s)
	for i := range out {
		out[i].Keywords = slices.Clone(out[i].Keywords)
		out[i].ContractTypes = slices.Clone(out[i].ContractTypes)
	}
	return out
}

// RuleRow is one decoded record of the rule resource, keyed by column name.
// Number is the 1-based data row, used for error context and default ids.
type RuleRow struct {
	Number int
	Fields map[string]string
}

// Get returns the trimmed value of a column.
func (r RuleRow) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Blank reports whether every column of the row is empty.
func (r RuleRow) Blank() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// RuleSource produces a fully built rule set from some external resource.
// Implementations must honour ctx between rows.
type RuleSource interface {
	Name() string
	Load(ctx context.Context) (RuleSet, error)
}

// Reloader swaps in a freshly loaded rule set.
type Reloader interface {
	Reload(ctx context.Context) (RuleSet, error)
}

// Watchable is implemented by sources that can follow changes to their
// backing resource.
type Watchable interface {
	Watch(ctx context.Context, target Reloader) (<-chan Event, error)
}
