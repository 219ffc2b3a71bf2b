// Package docx reads and rewrites WordprocessingML packages without
// disturbing what it does not touch.
//
// XML parts are parsed into a Tree that remembers the exact source bytes of
// every token. Serializing an unmodified Tree reproduces its input byte for
// byte; edits only add, expand or drop whole tokens. Zip entries that were
// not rewritten are copied raw.
package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedXML is wrapped by every parse failure.
var ErrMalformedXML = errors.New("malformed xml")

// Kind classifies a Node.
type Kind uint8

const (
	// ElementNode is a start tag (or a self-closing tag).
	ElementNode Kind = iota + 1
	// EndNode closes an ElementNode.
	EndNode
	// TextNode is character data.
	TextNode
	// OtherNode is a processing instruction, comment or directive.
	OtherNode
)

// Node is one token of a Tree, linked in document order.
type Node struct {
	kind        Kind
	name        string
	attrs       []xml.Attr
	text        string
	raw         []byte
	selfClosing bool

	pair, parent, prev, next *Node
	removed                  bool
}

// Kind reports the node kind.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the qualified tag name as written ("w:p").
func (n *Node) Name() string { return n.name }

// Parent returns the enclosing element, or nil at the top level.
func (n *Node) Parent() *Node { return n.parent }

// Removed reports whether the node was removed from its tree.
func (n *Node) Removed() bool { return n.removed }

// End returns the closing node of an element, or n itself otherwise.
func (n *Node) End() *Node {
	if n.kind == ElementNode && n.pair != nil {
		return n.pair
	}
	return n
}

// Text returns the decoded character data of a text node.
func (n *Node) Text() string { return n.text }

// Attr returns the value of the attribute with the qualified name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if qname(a.Name) == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attrs returns a copy of the element's attributes.
func (n *Node) Attrs() []xml.Attr {
	return append([]xml.Attr(nil), n.attrs...)
}

// Children returns the direct child elements of n in order.
func (n *Node) Children() []*Node {
	var out []*Node
	if n.kind != ElementNode {
		return out
	}
	for c := n.next; c != nil && c != n.pair; c = c.next {
		if c.kind == ElementNode && c.parent == n {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first direct child element named name.
func (n *Node) FirstChild(name string) *Node {
	for _, c := range n.Children() {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Ancestor returns the nearest enclosing element named name.
func (n *Node) Ancestor(name string) *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.name == name {
			return p
		}
	}
	return nil
}

// InnerText concatenates the character data of every textElem element
// inside n ("w:t" for Word runs).
func (n *Node) InnerText(textElem string) string {
	var b strings.Builder
	for c := n.next; c != nil && c != n.End(); c = c.next {
		if c.kind == TextNode && c.parent != nil && c.parent.name == textElem {
			b.WriteString(c.text)
		}
	}
	return b.String()
}

// Tree is a parsed XML part.
type Tree struct {
	head, tail *Node
}

// Parse builds a Tree from data. data is referenced, never modified.
func Parse(data []byte) (*Tree, error) {
	first, last, err := parseChain(data, nil)
	if err != nil {
		return nil, err
	}
	t := &Tree{head: &Node{}, tail: &Node{}}
	t.head.next, t.tail.prev = t.tail, t.head
	if first != nil {
		link(t.head, first, last)
	}
	return t, nil
}

// parseChain tokenizes data into a detached doc-order chain. Top-level nodes
// get parent as their parent.
func parseChain(data []byte, parent *Node) (first, last *Node, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var stack []*Node
	var offset int64
	appendNode := func(n *Node) {
		if first == nil {
			first = n
		} else {
			last.next = n
			n.prev = last
		}
		last = n
	}
	top := func() *Node {
		if len(stack) == 0 {
			return parent
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		end := dec.InputOffset()
		n := &Node{raw: data[offset:end:end], parent: top()}
		offset = end

		switch tk := tok.(type) {
		case xml.StartElement:
			n.kind = ElementNode
			n.name = qname(tk.Name)
			n.attrs = append([]xml.Attr(nil), tk.Attr...)
			stack = append(stack, n)
		case xml.EndElement:
			name := qname(tk.Name)
			if len(stack) == 0 || stack[len(stack)-1].name != name {
				return nil, nil, fmt.Errorf("%w: unexpected </%s> at offset %d", ErrMalformedXML, name, end)
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n.kind = EndNode
			n.name = name
			n.parent = start.parent
			n.pair, start.pair = start, n
			if len(n.raw) == 0 {
				start.selfClosing = true
			}
		case xml.CharData:
			n.kind = TextNode
			n.text = string(tk)
		default:
			n.kind = OtherNode
		}
		appendNode(n)
	}

	if len(stack) > 0 {
		return nil, nil, fmt.Errorf("%w: <%s> is never closed", ErrMalformedXML, stack[len(stack)-1].name)
	}
	if offset < int64(len(data)) {
		appendNode(&Node{kind: OtherNode, raw: data[offset:len(data):len(data)], parent: parent})
	}
	return first, last, nil
}

// link splices the chain first..last after at.
func link(at, first, last *Node) {
	next := at.next
	at.next, first.prev = first, at
	last.next = next
	if next != nil {
		next.prev = last
	}
}

// Bytes serializes the tree.
func (t *Tree) Bytes() []byte {
	var buf bytes.Buffer
	for n := t.head.next; n != t.tail; n = n.next {
		buf.Write(n.raw)
	}
	return buf.Bytes()
}

// Root returns the document element.
func (t *Tree) Root() *Node {
	for n := t.head.next; n != t.tail; n = n.next {
		if n.kind == ElementNode {
			return n
		}
	}
	return nil
}

// Elements returns every element named name in document order.
func (t *Tree) Elements(name string) []*Node {
	var out []*Node
	for n := t.head.next; n != t.tail; n = n.next {
		if n.kind == ElementNode && n.name == name {
			out = append(out, n)
		}
	}
	return out
}

// NextElement returns the first element named name that starts after n.
func (t *Tree) NextElement(n *Node, name string) *Node {
	for c := n.End().next; c != nil && c != t.tail; c = c.next {
		if c.kind == ElementNode && c.name == name {
			return c
		}
	}
	return nil
}

// PrefixFor returns the prefix the root element binds to namespace uri, or
// fallback when it declares none. An empty result means the default
// namespace.
func (t *Tree) PrefixFor(uri, fallback string) string {
	root := t.Root()
	if root == nil {
		return fallback
	}
	for _, a := range root.attrs {
		if a.Value != uri {
			continue
		}
		if a.Name.Space == "xmlns" {
			return a.Name.Local
		}
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			return ""
		}
	}
	return fallback
}

// InsertBefore parses fragment and places it immediately before ref. The
// new top-level elements are returned.
func (t *Tree) InsertBefore(ref *Node, fragment string) ([]*Node, error) {
	return t.insert(ref.prev, ref.parent, fragment, false)
}

// InsertAfter parses fragment and places it immediately after ref (after
// its closing tag when ref is an element).
func (t *Tree) InsertAfter(ref *Node, fragment string) ([]*Node, error) {
	return t.insert(ref.End(), ref.parent, fragment, false)
}

// AppendChild parses fragment and places it at the end of parent's content.
func (t *Tree) AppendChild(parent *Node, fragment string) ([]*Node, error) {
	return t.insert(parent.End().prev, parent, fragment, true)
}

// PrependChild parses fragment and places it at the start of parent's
// content.
func (t *Tree) PrependChild(parent *Node, fragment string) ([]*Node, error) {
	return t.insert(parent, parent, fragment, true)
}

// Remove unlinks n and, for elements, everything up to its closing tag.
func (t *Tree) Remove(n *Node) {
	end := n.End()
	before, after := n.prev, end.next
	before.next, after.prev = after, before
	for c := n; ; c = c.next {
		c.removed = true
		if c == end {
			break
		}
	}
}

func (t *Tree) insert(after, parent *Node, fragment string, intoParent bool) ([]*Node, error) {
	first, last, err := parseChain([]byte(fragment), parent)
	if err != nil {
		return nil, err
	}
	if intoParent {
		t.expand(parent)
	}
	if first == nil {
		return nil, nil
	}
	link(after, first, last)

	var tops []*Node
	for c := first; ; c = c.next {
		if c.kind == ElementNode && c.parent == parent {
			tops = append(tops, c)
		}
		if c == last {
			break
		}
	}
	return tops, nil
}

// expand turns a self-closing element into an open/close pair so it can
// take children. Attribute bytes are kept as written.
func (t *Tree) expand(n *Node) {
	if !n.selfClosing {
		return
	}
	open := bytes.TrimRight(n.raw, ">")
	open = bytes.TrimRight(open, "/")
	open = bytes.TrimRight(open, " \t\r\n")
	n.raw = append(append([]byte(nil), open...), '>')
	n.pair.raw = []byte("</" + n.name + ">")
	n.selfClosing = false
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Escape returns s escaped for use in character data or a quoted attribute.
func Escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
