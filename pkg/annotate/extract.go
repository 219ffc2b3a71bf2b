package annotate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// clauseHeading matches paragraphs that open a clause: "第3条", "第十二条",
// "3." (not "3.1"), "3、", "（3）", "III." and "三、".
var clauseHeading = regexp.MustCompile(`^(?:第[0-9零一二三四五六七八九十百]+条|[0-9]+(?:、|\.(?:[^0-9]|$))|[（(][0-9]+[）)]|[IVX]+[.、]|[一二三四五六七八九十百]+[.、])`)

// IsClauseHeading reports whether a paragraph's text reads like a clause
// heading.
func IsClauseHeading(text string) bool {
	return clauseHeading.MatchString(strings.TrimSpace(text))
}

// ExtractClauses splits the main document of src into clauses. Each heading
// paragraph starts a clause; the non-blank paragraphs up to the next heading
// form its text. Ids are "c1", "c2", ... in document order.
func ExtractClauses(src []byte) ([]core.Clause, error) {
	_, tree, n, err := openDocument(src)
	if err != nil {
		return nil, err
	}

	clauses := make([]core.Clause, 0)
	var body []string
	flush := func() {
		if len(clauses) > 0 {
			clauses[len(clauses)-1].Text = strings.Join(body, "\n")
		}
		body = body[:0]
	}
	for _, p := range tree.Elements(n.p) {
		text := strings.TrimSpace(p.InnerText(n.t))
		if text == "" {
			continue
		}
		if IsClauseHeading(text) {
			flush()
			clauses = append(clauses, core.Clause{
				ID:      "c" + strconv.Itoa(len(clauses)+1),
				Heading: text,
			})
			continue
		}
		if len(clauses) > 0 {
			body = append(body, text)
		}
	}
	flush()
	return clauses, nil
}
