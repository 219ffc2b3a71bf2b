package docx

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Namespaces and identifiers used by the comments part.
const (
	NSMain          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"

	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeComments       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"

	ContentTypeComments = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
)

const emptyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<Relationships xmlns="` + NSRelationships + `"></Relationships>`

// MainDocument returns the name of the main document part, following the
// package relationship when there is one.
func (p *Package) MainDocument() string {
	if !p.Has(PackageRelsPart) {
		return DocumentPart
	}
	t, err := p.ReadTree(PackageRelsPart)
	if err != nil {
		return DocumentPart
	}
	for _, rel := range t.Elements("Relationship") {
		if typ, _ := rel.Attr("Type"); typ != RelTypeOfficeDocument {
			continue
		}
		if target, ok := rel.Attr("Target"); ok && target != "" {
			return strings.TrimPrefix(target, "/")
		}
	}
	return DocumentPart
}

// RelsPartFor returns the relationships part name of part.
func RelsPartFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// EnsureOverride registers contentType for partName ("/word/comments.xml")
// in [Content_Types].xml unless an override already exists.
func (p *Package) EnsureOverride(partName, contentType string) error {
	t, err := p.ReadTree(ContentTypesPart)
	if err != nil {
		return err
	}
	root := t.Root()
	if root == nil {
		return fmt.Errorf("%s: %w: no root element", ContentTypesPart, ErrMalformedXML)
	}
	prefix := elemPrefix(t.PrefixFor(NSContentTypes, ""))
	for _, o := range t.Elements(prefix + "Override") {
		if name, _ := o.Attr("PartName"); strings.EqualFold(name, partName) {
			return nil
		}
	}
	frag := fmt.Sprintf(`<%sOverride PartName="%s" ContentType="%s"/>`, prefix, Escape(partName), Escape(contentType))
	if _, err := t.AppendChild(root, frag); err != nil {
		return err
	}
	p.PutTree(ContentTypesPart, t)
	return nil
}

// EnsureRelationship returns the id of the relType relationship from part
// to target, adding it (and the rels part) when missing.
func (p *Package) EnsureRelationship(part, relType, target string) (string, error) {
	relsPart := RelsPartFor(part)
	var data []byte
	if p.Has(relsPart) {
		var err error
		if data, err = p.Read(relsPart); err != nil {
			return "", err
		}
	} else {
		data = []byte(emptyRels)
	}

	t, err := Parse(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", relsPart, err)
	}
	root := t.Root()
	if root == nil {
		return "", fmt.Errorf("%s: %w: no root element", relsPart, ErrMalformedXML)
	}
	prefix := elemPrefix(t.PrefixFor(NSRelationships, ""))

	used := make(map[string]bool)
	next := 1
	for _, rel := range t.Elements(prefix + "Relationship") {
		id, _ := rel.Attr("Id")
		typ, _ := rel.Attr("Type")
		if typ == relType {
			return id, nil
		}
		used[id] = true
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n >= next {
			next = n + 1
		}
	}
	id := "rId" + strconv.Itoa(next)
	for used[id] {
		next++
		id = "rId" + strconv.Itoa(next)
	}

	frag := fmt.Sprintf(`<%sRelationship Id="%s" Type="%s" Target="%s"/>`, prefix, id, Escape(relType), Escape(target))
	if _, err := t.AppendChild(root, frag); err != nil {
		return "", err
	}
	p.PutTree(relsPart, t)
	return id, nil
}

func elemPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + ":"
}
