package payload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/payload"
)

const twoIssues = `{
  "issues": [
    {"clauseId": "c1", "anchorId": "anc-c1-4f21", "severity": "HIGH", "category": "付款", "finding": "付款期限过长", "suggestion": "缩短至15日"},
    {"clauseId": "c2", "severity": "LOW", "category": "保密", "finding": "未约定保密期限", "suggestion": null}
  ]
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
		count int
	}{
		{name: "Two Issues", raw: twoIssues, valid: true, count: 2},
		{name: "Empty Issues", raw: `{"issues":[]}`, valid: true, count: 0},
		{name: "Malformed JSON", raw: `{invalid json}`, valid: false, count: 0},
		{name: "Empty Input", raw: "", valid: false, count: 0},
		{name: "Whitespace Input", raw: "  \n", valid: false, count: 0},
		{name: "Missing Issues", raw: `{"items":[]}`, valid: false, count: 0},
		{name: "Issues Not Array", raw: `{"issues":{}}`, valid: false, count: 0},
		{name: "Null Issues", raw: `{"issues":null}`, valid: false, count: 0},
		{name: "Top Level Array", raw: `[{"clauseId":"c1"}]`, valid: false, count: 0},
		{name: "Missing Clause ID", raw: `{"issues":[{"finding":"x"}]}`, valid: false, count: 0},
		{name: "Blank Clause ID", raw: `{"issues":[{"clauseId":""}]}`, valid: false, count: 0},
		{name: "Wrong Field Type", raw: `{"issues":[{"clauseId":"c1","severity":3}]}`, valid: false, count: 0},
		{name: "Extra Fields Allowed", raw: `{"issues":[{"clauseId":"c1","targetText":"第一条","confidence":"high"}],"model":"x"}`, valid: true, count: 1},
		{name: "Match Index Not Integer", raw: `{"issues":[{"clauseId":"c1","matchIndex":"2"}]}`, valid: false, count: 0},
		{name: "Trailing Garbage", raw: `{"issues":[]} trailing`, valid: false, count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, payload.Validate([]byte(tt.raw)))
			assert.Equal(t, tt.count, payload.CountIssues([]byte(tt.raw)))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("Decodes Issues In Order", func(t *testing.T) {
		p, err := payload.Parse([]byte(twoIssues))
		require.NoError(t, err)
		require.Len(t, p.Issues, 2)
		assert.Equal(t, core.ReviewIssue{
			ClauseID:   "c1",
			AnchorID:   "anc-c1-4f21",
			Severity:   "HIGH",
			Category:   "付款",
			Finding:    "付款期限过长",
			Suggestion: "缩短至15日",
		}, p.Issues[0])
		assert.Equal(t, "", p.Issues[1].Suggestion)
	})

	t.Run("Decodes Target Text", func(t *testing.T) {
		p, err := payload.Parse([]byte(`{"issues":[{"clauseId":"c1","targetText":"90日","matchPattern":"CONTAINS","matchIndex":2}]}`))
		require.NoError(t, err)
		require.Len(t, p.Issues, 1)
		assert.Equal(t, "90日", p.Issues[0].TargetText)
		assert.Equal(t, "CONTAINS", p.Issues[0].MatchPattern)
		assert.Equal(t, 2, p.Issues[0].MatchIndex)
	})

	t.Run("Reports Schema Details", func(t *testing.T) {
		_, err := payload.Parse([]byte(`{"issues":[{"finding":"x"}]}`))
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.NotEmpty(t, vErr.Details)
		assert.ErrorIs(t, err, core.ErrInvalidPayload)
	})

	t.Run("Empty Issues Decodes To Empty Slice", func(t *testing.T) {
		p, err := payload.Parse([]byte(`{"issues":[]}`))
		require.NoError(t, err)
		assert.NotNil(t, p.Issues)
		assert.Empty(t, p.Issues)
	})
}

func TestLenient(t *testing.T) {
	fenced := "```json\n{\"issues\":[{\"clauseId\":\"c1\"}]}\n```"

	strict := payload.New(nil)
	assert.False(t, strict.Validate([]byte(fenced)))

	lenient := payload.New(nil)
	lenient.Lenient = true
	assert.True(t, lenient.Validate([]byte(fenced)))
	assert.Equal(t, 1, lenient.CountIssues([]byte(fenced)))
}

func TestMarshal(t *testing.T) {
	out, err := payload.Marshal(core.ReviewPayload{})
	require.NoError(t, err)
	assert.True(t, payload.Validate(out))
	assert.Contains(t, string(out), `"issues": []`)
}
