package annotate

import (
	"fmt"
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

// document is the per-call view of the main document part. Node pointers
// stay valid across insertions, so anchors found up front can be reused
// after earlier issues have added markers.
type document struct {
	tree *docx.Tree
	n    names

	marks    []*docx.Node
	consumed map[*docx.Node]bool
	ranges   map[*docx.Node]*paraRange

	headingFallback bool
	anchorFallback  bool
}

// paraRange tracks the innermost markers inserted into one paragraph.
type paraRange struct {
	start *docx.Node
	end   *docx.Node
}

func newDocument(tree *docx.Tree, n names) *document {
	return &document{
		tree:     tree,
		n:        n,
		marks:    tree.Elements(n.bookmarkStart),
		consumed: make(map[*docx.Node]bool),
		ranges:   make(map[*docx.Node]*paraRange),
	}
}

// resolve finds the paragraph an issue should be attached to.
func (d *document) resolve(issue core.ReviewIssue) (*docx.Node, error) {
	clauseID := strings.TrimSpace(issue.ClauseID)
	if clauseID == "" {
		return nil, core.ErrMissingClauseID
	}

	if anchorID := strings.TrimSpace(issue.AnchorID); anchorID != "" {
		if mark := d.byName(anchorID); mark != nil {
			d.consumed[mark] = true
			return d.paragraphOf(mark)
		}
		if !d.anchorFallback {
			return nil, core.ErrAnchorNotFound
		}
	}

	if mark := d.clauseAnchor(clauseID); mark != nil {
		d.consumed[mark] = true
		return d.paragraphOf(mark)
	}
	if d.headingFallback {
		if p := findHeading(d.tree, d.n, clauseID); p != nil {
			return p, nil
		}
	}
	return nil, core.ErrClauseNotFound
}

func (d *document) byName(name string) *docx.Node {
	for _, m := range d.marks {
		if v, _ := m.Attr(d.n.name); v == name {
			return m
		}
	}
	return nil
}

// clauseAnchor returns the first unconsumed anchor of the clause, or the
// first one when all have been used.
func (d *document) clauseAnchor(clauseID string) *docx.Node {
	var first *docx.Node
	for _, m := range d.marks {
		if v, _ := m.Attr(d.n.name); !isClauseAnchor(v, clauseID) {
			continue
		}
		if !d.consumed[m] {
			return m
		}
		if first == nil {
			first = m
		}
	}
	return first
}

// paragraphOf returns the paragraph holding mark, or the next paragraph for
// a bookmark placed between paragraphs.
func (d *document) paragraphOf(mark *docx.Node) (*docx.Node, error) {
	if p := mark.Ancestor(d.n.p); p != nil {
		return p, nil
	}
	if p := d.tree.NextElement(mark, d.n.p); p != nil {
		return p, nil
	}
	return nil, core.ErrParagraphNotFound
}

// rangeMarkup returns the start marker and the end marker plus reference
// run of comment id.
func (d *document) rangeMarkup(id int) (start, end string) {
	start = fmt.Sprintf(`<%s %s="%d"/>`, d.n.rangeStart, d.n.id, id)
	end = fmt.Sprintf(`<%s %s="%d"/><%s><%s %s="%d"/></%s>`,
		d.n.rangeEnd, d.n.id, id,
		d.n.r, d.n.reference, d.n.id, id, d.n.r,
	)
	return start, end
}

// bracket wraps the content of para in a comment range for id. The first
// range in a paragraph is outermost; each later one nests just inside the
// previous.
func (d *document) bracket(para *docx.Node, id int) error {
	start, end := d.rangeMarkup(id)

	rng, ok := d.ranges[para]
	if !ok {
		var starts []*docx.Node
		var err error
		if pPr := para.FirstChild(d.n.pPr); pPr != nil {
			starts, err = d.tree.InsertAfter(pPr, start)
		} else {
			starts, err = d.tree.PrependChild(para, start)
		}
		if err != nil {
			return err
		}
		ends, err := d.tree.AppendChild(para, end)
		if err != nil {
			return err
		}
		d.ranges[para] = &paraRange{start: starts[0], end: ends[0]}
		return nil
	}

	starts, err := d.tree.InsertAfter(rng.start, start)
	if err != nil {
		return err
	}
	ends, err := d.tree.InsertBefore(rng.end, end)
	if err != nil {
		return err
	}
	rng.start, rng.end = starts[0], ends[0]
	return nil
}

// bracketRuns wraps the runs of sp in a comment range for id. Markers sit
// directly against the runs, so ranges on the same runs nest with the
// earlier one outside.
func (d *document) bracketRuns(sp span, id int) error {
	start, end := d.rangeMarkup(id)
	if _, err := d.tree.InsertBefore(sp.first, start); err != nil {
		return err
	}
	_, err := d.tree.InsertAfter(sp.last, end)
	return err
}

// maxCommentID returns the highest comment id referenced by the body.
func (d *document) maxCommentID() int {
	highest := 0
	for _, elem := range []string{d.n.rangeStart, d.n.rangeEnd, d.n.reference} {
		if v := maxIDAttr(d.tree, elem, d.n.id); v > highest {
			highest = v
		}
	}
	return highest
}
