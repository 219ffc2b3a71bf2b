package annotate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

const newCommentsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<w:comments` +
	` xmlns:w="` + docx.NSMain + `"` +
	` xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"` +
	` xmlns:w15="http://schemas.microsoft.com/office/word/2012/wordml"` +
	` xmlns:w16cex="http://schemas.microsoft.com/office/word/2018/wordml/cex"` +
	` xmlns:w16cid="http://schemas.microsoft.com/office/word/2016/wordml/cid"` +
	` xmlns:w16="http://schemas.microsoft.com/office/word/2018/wordml"` +
	` xmlns:w16sdtdh="http://schemas.microsoft.com/office/word/2020/wordml/sdtdatahash"` +
	` xmlns:w16se="http://schemas.microsoft.com/office/word/2015/wordml/symex"` +
	`></w:comments>`

// severityLabels maps payload severities to the label shown in comments.
var severityLabels = map[string]string{
	"HIGH":   "高风险",
	"MEDIUM": "中风险",
	"LOW":    "低风险",
}

// SeverityLabel returns the display label for a severity. Unknown values
// are shown as given.
func SeverityLabel(severity string) string {
	s := strings.TrimSpace(severity)
	if s == "" {
		return "未知风险"
	}
	if label, ok := severityLabels[strings.ToUpper(s)]; ok {
		return label
	}
	return s
}

// categoryHeading turns a category into its bold lead-in ("付款问题：").
func categoryHeading(category string) string {
	switch {
	case !strings.HasSuffix(category, "问题") && !strings.HasSuffix(category, "问题："):
		return category + "问题："
	case !strings.HasSuffix(category, "："):
		return category + "："
	default:
		return category
	}
}

// comments wraps the comments part of a package.
type comments struct {
	part    string
	tree    *docx.Tree
	root    *docx.Node
	n       names
	created bool
}

func loadComments(pkg *docx.Package, part string) (*comments, error) {
	c := &comments{part: part}
	var err error
	if pkg.Has(part) {
		c.tree, err = pkg.ReadTree(part)
	} else {
		c.tree, err = docx.Parse([]byte(newCommentsXML))
		c.created = true
	}
	if err != nil {
		return nil, &core.DocumentError{Part: part, Err: fmt.Errorf("%w: %v", core.ErrMalformedDocument, err)}
	}

	c.n = newNames(c.tree.PrefixFor(docx.NSMain, "w"))
	c.root = c.tree.Root()
	if c.root == nil || c.root.Name() != c.n.comments {
		return nil, &core.DocumentError{Part: part, Err: fmt.Errorf("%w: root is not %s", core.ErrMalformedDocument, c.n.comments)}
	}
	return c, nil
}

// maxID returns the highest numeric comment id in the part, or 0.
func (c *comments) maxID() int {
	return maxIDAttr(c.tree, c.n.comment, c.n.id)
}

func (c *comments) add(id int, issue core.ReviewIssue, meta commentMeta) error {
	_, err := c.tree.AppendChild(c.root, renderComment(c.n, id, issue, meta))
	return err
}

type commentMeta struct {
	author   string
	initials string
	date     string
}

// renderComment builds the w:comment element: a severity paragraph, a
// category/finding paragraph and a suggestion paragraph.
func renderComment(n names, id int, issue core.ReviewIssue, meta commentMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s %s="%d" %s="%s" %s="%s" %s="%s">`,
		n.comment, n.id, id,
		n.author, docx.Escape(meta.author),
		n.date, docx.Escape(meta.date),
		n.initials, docx.Escape(meta.initials),
	)

	paragraph(&b, n, boldRun(n, "风险等级："), plainRun(n, SeverityLabel(issue.Severity)))

	switch {
	case issue.Category != "":
		runs := []string{boldRun(n, categoryHeading(issue.Category))}
		if issue.Finding != "" {
			runs = append(runs, plainRun(n, issue.Finding))
		}
		paragraph(&b, n, runs...)
	case issue.Finding != "":
		paragraph(&b, n, plainRun(n, issue.Finding))
	}

	if issue.Suggestion != "" {
		paragraph(&b, n, boldRun(n, "建议："), plainRun(n, issue.Suggestion))
	}

	fmt.Fprintf(&b, `</%s>`, n.comment)
	return b.String()
}

func paragraph(b *strings.Builder, n names, runs ...string) {
	fmt.Fprintf(b, `<%s>`, n.p)
	for _, r := range runs {
		b.WriteString(r)
	}
	fmt.Fprintf(b, `</%s>`, n.p)
}

func boldRun(n names, text string) string {
	return fmt.Sprintf(`<%s><%s><%s %s="Arial" %s="Arial" %s="Arial" %s="Arial"/><%s/><%s/><%s %s="22"/></%s>%s</%s>`,
		n.r, n.rPr,
		n.rFonts, n.q("ascii"), n.q("hAnsi"), n.q("eastAsia"), n.q("cs"),
		n.q("b"), n.q("bCs"), n.q("sz"), n.q("val"),
		n.rPr, textElem(n, text), n.r,
	)
}

func plainRun(n names, text string) string {
	return fmt.Sprintf(`<%s>%s</%s>`, n.r, textElem(n, text), n.r)
}

func textElem(n names, text string) string {
	return fmt.Sprintf(`<%s xml:space="preserve">%s</%s>`, n.t, docx.Escape(text), n.t)
}

// maxIDAttr returns the largest integer value of attr across elements named
// elem.
func maxIDAttr(t *docx.Tree, elem, attr string) int {
	highest := 0
	for _, e := range t.Elements(elem) {
		v, _ := e.Attr(attr)
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && id > highest {
			highest = id
		}
	}
	return highest
}
