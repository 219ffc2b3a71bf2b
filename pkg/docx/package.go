package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

// Well-known part names of a WordprocessingML package.
const (
	ContentTypesPart = "[Content_Types].xml"
	PackageRelsPart  = "_rels/.rels"
	DocumentPart     = "word/document.xml"
	CommentsPart     = "word/comments.xml"
)

// ErrPartNotFound is wrapped when a requested part does not exist.
var ErrPartNotFound = errors.New("part not found")

// Package is an opened OPC zip. Reads see pending writes; nothing touches
// the source bytes.
type Package struct {
	reader  *zip.Reader
	entries map[string]*zip.File
	parts   map[string][]byte
	added   []string
}

// Open reads a package from data.
func Open(data []byte) (*Package, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	p := &Package{
		reader:  r,
		entries: make(map[string]*zip.File, len(r.File)),
		parts:   make(map[string][]byte),
	}
	for _, f := range r.File {
		p.entries[f.Name] = f
	}
	return p, nil
}

// Has reports whether the package contains name.
func (p *Package) Has(name string) bool {
	if _, ok := p.parts[name]; ok {
		return true
	}
	_, ok := p.entries[name]
	return ok
}

// Names lists the part names in archive order, added parts last.
func (p *Package) Names() []string {
	names := make([]string, 0, len(p.reader.File)+len(p.added))
	for _, f := range p.reader.File {
		names = append(names, f.Name)
	}
	return append(names, p.added...)
}

// Read returns the content of part name.
func (p *Package) Read(name string) ([]byte, error) {
	if data, ok := p.parts[name]; ok {
		return append([]byte(nil), data...), nil
	}
	f, ok := p.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Put replaces or adds part name.
func (p *Package) Put(name string, data []byte) {
	if _, ok := p.entries[name]; !ok {
		if _, pending := p.parts[name]; !pending {
			p.added = append(p.added, name)
		}
	}
	p.parts[name] = append([]byte(nil), data...)
}

// Bytes writes the package. Untouched entries are copied without
// recompression; rewritten entries keep their name, method and timestamp.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	var stamp time.Time
	for _, f := range p.reader.File {
		if stamp.IsZero() && !f.Modified.IsZero() {
			stamp = f.Modified
		}
		data, replaced := p.parts[f.Name]
		if !replaced {
			if err := w.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		hdr := &zip.FileHeader{
			Name:     f.Name,
			Comment:  f.Comment,
			Method:   f.Method,
			Modified: f.Modified,
		}
		hdr.SetMode(f.Mode())
		if err := writeEntry(w, hdr, data); err != nil {
			return nil, err
		}
	}

	for _, name := range p.added {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: stamp}
		if err := writeEntry(w, hdr, p.parts[name]); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeEntry(w *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	fw, err := w.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write %s: %w", hdr.Name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", hdr.Name, err)
	}
	return nil
}

// ReadTree parses part name.
func (p *Package) ReadTree(name string) (*Tree, error) {
	data, err := p.Read(name)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// PutTree serializes t into part name.
func (p *Package) PutTree(name string, t *Tree) {
	p.Put(name, t.Bytes())
}
