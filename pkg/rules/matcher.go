package rules

import (
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// FilterByContractType returns the rules that are universal or list
// contractType, in their original order.
func FilterByContractType(set core.RuleSet, contractType string) core.RuleSet {
	out := make(core.RuleSet, 0, len(set))
	for _, r := range set {
		if r.AppliesTo(contractType) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByRisk returns the rules whose risk label equals risk, ignoring case.
func FilterByRisk(set core.RuleSet, risk string) core.RuleSet {
	risk = strings.TrimSpace(risk)
	out := make(core.RuleSet, 0, len(set))
	for _, r := range set {
		if strings.EqualFold(r.Risk, risk) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether text contains any of the rule's keywords.
// Containment is a case-sensitive substring test. A rule without keywords
// never matches; when keywords exist but none is found, the rule's pattern
// (if any) gets a chance.
func Matches(rule core.ReviewRule, text string) bool {
	if text == "" || len(rule.Keywords) == 0 {
		return false
	}
	for _, kw := range rule.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	if re := rule.Regexp(); re != nil {
		return re.MatchString(text)
	}
	return false
}

// MatchedKeywords returns the keywords of rule found in text, in rule order.
func MatchedKeywords(rule core.ReviewRule, text string) []string {
	var hits []string
	if text == "" {
		return hits
	}
	for _, kw := range rule.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// FindMatches returns the rules matching text, preserving set order.
func FindMatches(set core.RuleSet, text string) core.RuleSet {
	out := make(core.RuleSet, 0)
	if text == "" {
		return out
	}
	for _, r := range set {
		if Matches(r, text) {
			out = append(out, r)
		}
	}
	return out
}

// MatchClause filters set by contractType and matches the remaining rules
// against the clause heading and text.
func MatchClause(set core.RuleSet, clause core.Clause, contractType string) MatchResult {
	text := clause.Text
	if clause.Heading != "" {
		text = strings.TrimSpace(clause.Heading + "\n" + clause.Text)
	}
	return MatchResult{
		Clause:       clause,
		ContractType: contractType,
		Rules:        FindMatches(FilterByContractType(set, contractType), text),
	}
}
