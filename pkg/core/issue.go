package core

// ReviewIssue is a single finding produced by an external reviewer.
//
// TargetText narrows the comment to the runs holding that text inside the
// resolved paragraph. MatchPattern is EXACT (default), CONTAINS or REGEX;
// MatchIndex picks the n-th occurrence, 1-based.
type ReviewIssue struct {
	ClauseID     string `json:"clauseId"`
	AnchorID     string `json:"anchorId,omitempty"`
	Severity     string `json:"severity,omitempty"`
	Category     string `json:"category,omitempty"`
	Finding      string `json:"finding,omitempty"`
	Suggestion   string `json:"suggestion,omitempty"`
	TargetText   string `json:"targetText,omitempty"`
	MatchPattern string `json:"matchPattern,omitempty"`
	MatchIndex   int    `json:"matchIndex,omitempty"`
}

// ReviewPayload is the structured output of a review run.
type ReviewPayload struct {
	Issues []ReviewIssue `json:"issues"`
}

// Clause is a numbered section of a contract.
type Clause struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Text    string `json:"text,omitempty"`
}
