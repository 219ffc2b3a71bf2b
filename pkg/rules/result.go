package rules

import (
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// MatchResult groups the rules that matched one clause.
type MatchResult struct {
	Clause       core.Clause  `json:"clause"`
	ContractType string       `json:"contractType,omitempty"`
	Rules        core.RuleSet `json:"rules"`
}

// Count returns the number of matched rules.
func (m MatchResult) Count() int { return len(m.Rules) }

// RiskRank orders risk labels: blocker > high > medium > low > unknown.
func RiskRank(label string) int {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "blocker", "critical", "致命", "阻断":
		return 4
	case "high", "高", "高风险":
		return 3
	case "medium", "中", "中风险":
		return 2
	case "low", "低", "低风险":
		return 1
	}
	return 0
}

// HighestRisk returns the label of the most severe matched rule, or "" when
// nothing matched. Ties keep the earliest rule.
func (m MatchResult) HighestRisk() string {
	best, rank := "", -1
	for _, r := range m.Rules {
		if rr := RiskRank(r.Risk); rr > rank {
			best, rank = r.Risk, rr
		}
	}
	return best
}

// HasHighRisk reports whether any matched rule is high or blocker.
func (m MatchResult) HasHighRisk() bool {
	return RiskRank(m.HighestRisk()) >= 3
}

// Checklist joins the non-empty checklists of the matched rules, one per line.
func (m MatchResult) Checklist() string {
	var b strings.Builder
	for _, r := range m.Rules {
		c := strings.TrimSpace(r.Checklist)
		if c == "" {
			continue
		}
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// SuggestionsA returns the non-empty party A suggestions in rule order.
func (m MatchResult) SuggestionsA() []string {
	return m.suggestions(func(r core.ReviewRule) string { return r.SuggestA })
}

// SuggestionsB returns the non-empty party B suggestions in rule order.
func (m MatchResult) SuggestionsB() []string {
	return m.suggestions(func(r core.ReviewRule) string { return r.SuggestB })
}

func (m MatchResult) suggestions(pick func(core.ReviewRule) string) []string {
	out := []string{}
	for _, r := range m.Rules {
		if s := strings.TrimSpace(pick(r)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
