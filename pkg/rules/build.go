package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// UniversalContractTypes are labels meaning "applies to every contract".
// They normalise to an empty ContractTypes set.
var UniversalContractTypes = []string{"*", "all", "any", "通用", "通用合同", "全部"}

func isSeparator(r rune) bool {
	switch r {
	case ';', '；', ',', '，', '、', '|', '\n', '\r':
		return true
	}
	return false
}

// SplitList splits a cell into trimmed, de-duplicated items, keeping the
// first occurrence order.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, isSeparator)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func contractTypes(s string) []string {
	types := SplitList(s)
	for _, t := range types {
		for _, u := range UniversalContractTypes {
			if strings.EqualFold(t, u) {
				return nil
			}
		}
	}
	if len(types) == 0 {
		return nil
	}
	return types
}

// BuildRule parses a single row. The returned error is a *core.RuleLoadError
// without Source.
func BuildRule(row core.RuleRow) (core.ReviewRule, error) {
	fail := func(field string, err error) (core.ReviewRule, error) {
		return core.ReviewRule{}, &core.RuleLoadError{Row: row.Number, Field: field, Err: err}
	}

	r := core.ReviewRule{
		ID:            row.Get(ColumnID),
		ContractTypes: contractTypes(row.Get(ColumnContractTypes)),
		PartyScope:    row.Get(ColumnPartyScope),
		Risk:          row.Get(ColumnRisk),
		Keywords:      SplitList(row.Get(ColumnKeywords)),
		Pattern:       row.Get(ColumnPattern),
		Checklist:     row.Get(ColumnChecklist),
		SuggestA:      row.Get(ColumnSuggestA),
		SuggestB:      row.Get(ColumnSuggestB),
	}
	if r.ID == "" {
		r.ID = fmt.Sprintf("rule_%d", row.Number)
	}
	if r.PartyScope == "" {
		r.PartyScope = core.DefaultPartyScope
	}
	if r.Risk == "" {
		return fail(ColumnRisk, core.ErrMissingRisk)
	}
	if r.Checklist == "" {
		return fail(ColumnChecklist, core.ErrEmptyChecklist)
	}
	if err := r.Compile(); err != nil {
		return fail(ColumnPattern, err)
	}
	return r, nil
}

// Build parses rows into a rule set, enforcing per-rule invariants and id
// uniqueness. Blank rows are skipped. The context is checked between rows.
// Any failure discards the whole set.
func Build(ctx context.Context, source string, rows []core.RuleRow) (core.RuleSet, error) {
	set := make(core.RuleSet, 0, len(rows))
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, &core.RuleLoadError{Source: source, Row: row.Number, Err: err}
		}
		if row.Blank() {
			continue
		}

		r, err := BuildRule(row)
		if err != nil {
			var loadErr *core.RuleLoadError
			if errors.As(err, &loadErr) {
				loadErr.Source = source
				return nil, loadErr
			}
			return nil, &core.RuleLoadError{Source: source, Row: row.Number, Err: err}
		}

		if first, dup := seen[r.ID]; dup {
			return nil, &core.RuleLoadError{
				Source: source,
				Row:    row.Number,
				Field:  ColumnID,
				Err:    fmt.Errorf("%w: %q (first defined at row %d)", core.ErrDuplicateRuleID, r.ID, first),
			}
		}
		seen[r.ID] = row.Number
		set = append(set, r)
	}

	if len(set) == 0 {
		return nil, &core.RuleLoadError{Source: source, Err: core.ErrNoRules}
	}
	return set, nil
}
