package annotate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

// AnchorPrefix starts the name of every bookmark this package manages.
const AnchorPrefix = "anc-"

// Anchor names are "anc-<clauseId>-<hex>" for clauses and
// "anc-<clauseId>-p<n>-<hex>" for paragraphs inside a clause.
var (
	anchorSuffix = regexp.MustCompile(`^(?:p\d+-)?[0-9a-f]+$`)
	anchorName   = regexp.MustCompile(`^anc-(.+?)-(?:p\d+-)?[0-9a-f]+$`)
)

// Anchor is a clause bookmark found in a document.
type Anchor struct {
	Name     string `json:"name"`
	ClauseID string `json:"clauseId"`
	Text     string `json:"text,omitempty"`
}

// GenerateAnchorID returns the deterministic anchor name of a clause:
// "anc-<clauseId>-<8 hex digits>".
func GenerateAnchorID(clause core.Clause) string {
	text := clause.Text
	if r := []rune(text); len(r) > 100 {
		text = string(r[:100])
	}
	sum := sha256.Sum256([]byte(clause.ID + "|" + clause.Heading + "|" + text))
	return AnchorPrefix + clause.ID + "-" + hex.EncodeToString(sum[:])[:8]
}

// ClauseOf extracts the clause id from an anchor name, or "" when name is
// not an anchor.
func ClauseOf(name string) string {
	m := anchorName.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// isClauseAnchor reports whether name is a clause or paragraph anchor of
// clauseID. A clause whose id merely prefixes another's does not match.
func isClauseAnchor(name, clauseID string) bool {
	rest, ok := strings.CutPrefix(name, AnchorPrefix+clauseID+"-")
	return ok && anchorSuffix.MatchString(rest)
}

// ListAnchors returns the clause anchors of a document in document order.
func ListAnchors(src []byte) ([]Anchor, error) {
	_, tree, n, err := openDocument(src)
	if err != nil {
		return nil, err
	}
	d := newDocument(tree, n)

	anchors := make([]Anchor, 0)
	for _, m := range d.marks {
		name, _ := m.Attr(n.name)
		clauseID := ClauseOf(name)
		if clauseID == "" {
			continue
		}
		a := Anchor{Name: name, ClauseID: clauseID}
		if p, err := d.paragraphOf(m); err == nil {
			a.Text = strings.TrimSpace(p.InnerText(n.t))
		}
		anchors = append(anchors, a)
	}
	return anchors, nil
}

// InsertAnchors brackets each clause heading paragraph with a bookmark named
// by GenerateAnchorID. Clauses whose heading cannot be found are reported in
// the returned outcomes and left out.
func (a *Annotator) InsertAnchors(ctx context.Context, src []byte, clauses []core.Clause) (*Result, error) {
	pkg, tree, n, err := openDocument(src)
	if err != nil {
		return nil, err
	}
	part := pkg.MainDocument()
	d := newDocument(tree, n)
	nextID := maxIDAttr(tree, n.bookmarkStart, n.id) + 1

	res := &Result{Outcomes: make([]Outcome, 0, len(clauses))}
	for i, c := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrAnnotationCanceled, err)
		}
		name := GenerateAnchorID(c)
		o := Outcome{Index: i, ClauseID: c.ID, AnchorID: name}

		if d.byName(name) != nil {
			o.Applied = true
			res.Outcomes = append(res.Outcomes, o)
			continue
		}
		para := d.headingParagraph(c)
		if para == nil {
			o.Err = &core.AnchorResolutionError{Index: i, ClauseID: c.ID, Err: core.ErrClauseNotFound}
			a.logger.Warn("clause heading not found", "clause", c.ID, "heading", c.Heading)
			res.Outcomes = append(res.Outcomes, o)
			continue
		}

		if err := d.bookmark(para, nextID, name); err != nil {
			return nil, &core.SerializationError{Part: part, Err: err}
		}
		nextID++
		o.Applied = true
		res.Outcomes = append(res.Outcomes, o)
	}

	pkg.PutTree(part, tree)
	out, err := pkg.Bytes()
	if err != nil {
		return nil, &core.SerializationError{Part: "package", Err: err}
	}
	res.Document = out
	a.logger.Info("anchors inserted", "clauses", len(clauses), "applied", res.Applied())
	return res, nil
}

// headingParagraph finds the paragraph a clause starts at: one whose text
// begins with the heading, else the numbered heading forms.
func (d *document) headingParagraph(c core.Clause) *docx.Node {
	if h := strings.TrimSpace(c.Heading); h != "" {
		for _, p := range d.tree.Elements(d.n.p) {
			if strings.HasPrefix(strings.TrimSpace(p.InnerText(d.n.t)), h) {
				return p
			}
		}
	}
	return findHeading(d.tree, d.n, c.ID)
}

// bookmark wraps the content of para in a bookmark named name.
func (d *document) bookmark(para *docx.Node, id int, name string) error {
	start := fmt.Sprintf(`<%s %s="%d" %s="%s"/>`, d.n.bookmarkStart, d.n.id, id, d.n.name, docx.Escape(name))
	end := fmt.Sprintf(`<%s %s="%d"/>`, d.n.bookmarkEnd, d.n.id, id)

	var err error
	if pPr := para.FirstChild(d.n.pPr); pPr != nil {
		_, err = d.tree.InsertAfter(pPr, start)
	} else {
		_, err = d.tree.PrependChild(para, start)
	}
	if err != nil {
		return err
	}
	if _, err := d.tree.AppendChild(para, end); err != nil {
		return err
	}
	d.marks = d.tree.Elements(d.n.bookmarkStart)
	return nil
}

// removeAnchors deletes every anchor bookmark and its matching end marker.
// It returns the number of anchors removed.
func (d *document) removeAnchors() int {
	ids := make(map[string]bool)
	removed := 0
	for _, m := range d.tree.Elements(d.n.bookmarkStart) {
		name, _ := m.Attr(d.n.name)
		if !strings.HasPrefix(name, AnchorPrefix) {
			continue
		}
		if id, ok := m.Attr(d.n.id); ok {
			ids[id] = true
		}
		d.tree.Remove(m)
		removed++
	}
	for _, e := range d.tree.Elements(d.n.bookmarkEnd) {
		if id, _ := e.Attr(d.n.id); ids[id] {
			d.tree.Remove(e)
		}
	}
	d.marks = d.tree.Elements(d.n.bookmarkStart)
	return removed
}

// openDocument opens a package and parses its main document part.
func openDocument(src []byte) (*docx.Package, *docx.Tree, names, error) {
	pkg, err := docx.Open(src)
	if err != nil {
		return nil, nil, names{}, &core.DocumentError{Err: fmt.Errorf("%w: %v", core.ErrMalformedDocument, err)}
	}
	part := pkg.MainDocument()
	if !pkg.Has(part) {
		return nil, nil, names{}, &core.DocumentError{Part: part, Err: core.ErrMissingPart}
	}
	tree, err := pkg.ReadTree(part)
	if err != nil {
		return nil, nil, names{}, &core.DocumentError{Part: part, Err: fmt.Errorf("%w: %v", core.ErrMalformedDocument, err)}
	}
	return pkg, tree, newNames(tree.PrefixFor(docx.NSMain, "w")), nil
}
