package annotate

// names holds the qualified WordprocessingML names for the prefix a part
// binds to the main namespace.
type names struct {
	prefix string

	p, pPr, r, rPr, rFonts, t        string
	bookmarkStart, bookmarkEnd       string
	rangeStart, rangeEnd, reference  string
	comments, comment                string
	id, name, author, date, initials string
}

func newNames(prefix string) names {
	n := names{prefix: prefix}
	n.p, n.pPr, n.r, n.rPr, n.rFonts, n.t = n.q("p"), n.q("pPr"), n.q("r"), n.q("rPr"), n.q("rFonts"), n.q("t")
	n.bookmarkStart, n.bookmarkEnd = n.q("bookmarkStart"), n.q("bookmarkEnd")
	n.rangeStart, n.rangeEnd, n.reference = n.q("commentRangeStart"), n.q("commentRangeEnd"), n.q("commentReference")
	n.comments, n.comment = n.q("comments"), n.q("comment")
	n.id, n.name, n.author, n.date, n.initials = n.q("id"), n.q("name"), n.q("author"), n.q("date"), n.q("initials")
	return n
}

func (n names) q(local string) string {
	if n.prefix == "" {
		return local
	}
	return n.prefix + ":" + local
}
