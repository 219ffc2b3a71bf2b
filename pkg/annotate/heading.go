package annotate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

var clauseNumber = regexp.MustCompile(`\d+`)

const cnDigits = "零一二三四五六七八九"

// ChineseNumeral renders 1..99 the way contract headings do ("二十一").
// Other values yield "".
func ChineseNumeral(v int) string {
	if v < 1 || v > 99 {
		return ""
	}
	digit := func(d int) string {
		r := []rune(cnDigits)
		return string(r[d])
	}
	switch {
	case v < 10:
		return digit(v)
	case v == 10:
		return "十"
	case v < 20:
		return "十" + digit(v%10)
	case v%10 == 0:
		return digit(v/10) + "十"
	default:
		return digit(v/10) + "十" + digit(v%10)
	}
}

// headingForm is one spelling of a clause number. Forms marked anywhere may
// appear inside the paragraph; the rest must open it.
type headingForm struct {
	text     string
	anywhere bool
}

// headingForms lists the spellings of the clause number in clauseID, in
// match priority.
func headingForms(clauseID string) []headingForm {
	num := clauseNumber.FindString(clauseID)
	if num == "" {
		return nil
	}
	num = strings.TrimLeft(num, "0")
	if num == "" {
		return nil
	}

	forms := []headingForm{{text: "第" + num + "条", anywhere: true}}
	if v, err := strconv.Atoi(num); err == nil {
		if cn := ChineseNumeral(v); cn != "" {
			forms = append(forms, headingForm{text: "第" + cn + "条", anywhere: true})
		}
	}
	for _, f := range []string{num + ".", num + "、", "（" + num + "）", "(" + num + ")", "· " + num} {
		forms = append(forms, headingForm{text: f})
	}
	return forms
}

// findHeading returns the first paragraph that reads like the heading of
// clauseID. Forms are tried in priority order across the whole document; a
// paragraph merely starting with the bare number is the last resort.
func findHeading(tree *docx.Tree, n names, clauseID string) *docx.Node {
	forms := headingForms(clauseID)
	if len(forms) == 0 {
		return nil
	}

	paras := tree.Elements(n.p)
	texts := make([]string, len(paras))
	for i, p := range paras {
		texts[i] = strings.TrimSpace(p.InnerText(n.t))
	}

	for _, f := range forms {
		for i, text := range texts {
			if f.anywhere && strings.Contains(text, f.text) {
				return paras[i]
			}
			if !f.anywhere && strings.HasPrefix(text, f.text) {
				return paras[i]
			}
		}
	}

	num := strings.TrimPrefix(forms[0].text, "第")
	num = strings.TrimSuffix(num, "条")
	for i, text := range texts {
		if !strings.HasPrefix(text, num) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[len(num):])
		if next == utf8.RuneError || !unicode.IsDigit(next) {
			return paras[i]
		}
	}
	return nil
}
