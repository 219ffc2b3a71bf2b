package annotate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

// Match modes for ReviewIssue.MatchPattern.
const (
	MatchExact    = "EXACT"
	MatchContains = "CONTAINS"
	MatchRegex    = "REGEX"
)

// runText is one direct run of a paragraph and its byte offsets in the
// paragraph text.
type runText struct {
	run        *docx.Node
	start, end int
}

// span is the first and last run a target text touches.
type span struct {
	first, last *docx.Node
}

// locate finds the runs of para covering issue.TargetText. Runs are not
// split, so the span may be wider than the text itself.
func (d *document) locate(para *docx.Node, issue core.ReviewIssue) (span, error) {
	var runs []runText
	var b strings.Builder
	for _, c := range para.Children() {
		if c.Name() != d.n.r {
			continue
		}
		start := b.Len()
		b.WriteString(c.InnerText(d.n.t))
		runs = append(runs, runText{run: c, start: start, end: b.Len()})
	}

	matches, err := findMatches(b.String(), issue.TargetText, issue.MatchPattern)
	if err != nil {
		return span{}, err
	}
	if len(matches) == 0 {
		return span{}, core.ErrTargetNotFound
	}
	idx := min(max(issue.MatchIndex, 1), len(matches)) - 1
	from, to := matches[idx][0], matches[idx][1]

	var sp span
	for _, r := range runs {
		if r.start == r.end {
			continue
		}
		if sp.first == nil && from < r.end {
			sp.first = r.run
		}
		if to > r.start {
			sp.last = r.run
		}
	}
	if sp.first == nil || sp.last == nil {
		return span{}, core.ErrTargetNotFound
	}
	return sp, nil
}

// findMatches returns the [start, end) byte offsets of target in text.
// EXACT matches do not overlap; CONTAINS matches may.
func findMatches(text, target, mode string) ([][2]int, error) {
	if target == "" {
		return nil, nil
	}

	var out [][2]int
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "", MatchExact:
		for i := 0; ; {
			j := strings.Index(text[i:], target)
			if j < 0 {
				break
			}
			out = append(out, [2]int{i + j, i + j + len(target)})
			i += j + len(target)
		}
	case MatchContains:
		for i := 0; i < len(text); {
			j := strings.Index(text[i:], target)
			if j < 0 {
				break
			}
			out = append(out, [2]int{i + j, i + j + len(target)})
			// Advance one rune so overlapping occurrences are found.
			_, size := utf8.DecodeRuneInString(text[i+j:])
			i += j + size
		}
	case MatchRegex:
		re, err := regexp.Compile(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrTargetNotFound, err)
		}
		for _, m := range re.FindAllStringIndex(text, -1) {
			if m[1] > m[0] {
				out = append(out, [2]int{m[0], m[1]})
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown match pattern %q", core.ErrTargetNotFound, mode)
	}
	return out, nil
}
