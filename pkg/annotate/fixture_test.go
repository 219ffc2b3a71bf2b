package annotate_test

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moshango/Contract-review-sub001/pkg/docx"
)

const fixtureContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const fixturePackageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const fixtureDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/></Relationships>`

// fixtureDocument has anchors for c1 and c2 and an unanchored clause 3.
const fixtureDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:body>
    <w:p w:rsidR="001F2A"><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:bookmarkStart w:id="0" w:name="anc-c1-aaaa1111"/><w:r><w:t>第一条 付款</w:t></w:r><w:bookmarkEnd w:id="0"/></w:p>
    <w:p><w:r><w:t xml:space="preserve">甲方应于收货后90日内付款。</w:t></w:r></w:p>
    <w:p><w:bookmarkStart w:id="1" w:name="anc-c2-bbbb2222"/><w:r><w:t>第二条 保密</w:t></w:r><w:bookmarkEnd w:id="1"/></w:p>
    <w:p><w:r><w:t>3. 违约责任</w:t></w:r></w:p>
    <w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>
  </w:body>
</w:document>
`

const existingComments = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:comment w:id="3" w:author="法务" w:initials="FW"><w:p><w:r><w:t>已确认</w:t></w:r></w:p></w:comment><w:comment w:id="7" w:author="法务" w:initials="FW"><w:p><w:r><w:t>待定</w:t></w:r></w:p></w:comment></w:comments>`

var fixedClock = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }

type part struct {
	name string
	data string
}

func buildDocx(t *testing.T, parts ...part) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		})
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func sampleDocx(t *testing.T, extra ...part) []byte {
	t.Helper()
	parts := []part{
		{docx.ContentTypesPart, fixtureContentTypes},
		{docx.PackageRelsPart, fixturePackageRels},
		{docx.DocumentPart, fixtureDocument},
		{"word/_rels/document.xml.rels", fixtureDocumentRels},
	}
	return buildDocx(t, append(parts, extra...)...)
}

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	pkg, err := docx.Open(data)
	require.NoError(t, err)
	b, err := pkg.Read(name)
	require.NoError(t, err)
	return string(b)
}

func readTree(t *testing.T, data []byte, name string) *docx.Tree {
	t.Helper()
	tree, err := docx.Parse([]byte(readPart(t, data, name)))
	require.NoError(t, err)
	return tree
}

// stripComments removes every comment marker the annotator inserts.
func stripComments(tree *docx.Tree) []byte {
	for _, ref := range tree.Elements("w:commentReference") {
		if r := ref.Ancestor("w:r"); r != nil && !r.Removed() {
			tree.Remove(r)
		}
	}
	for _, name := range []string{"w:commentRangeStart", "w:commentRangeEnd"} {
		for _, n := range tree.Elements(name) {
			tree.Remove(n)
		}
	}
	return tree.Bytes()
}

// childSequence renders the direct children of p as "name#id".
func childSequence(p *docx.Node) []string {
	var out []string
	for _, c := range p.Children() {
		id, _ := c.Attr("w:id")
		if ref := c.FirstChild("w:commentReference"); ref != nil {
			rid, _ := ref.Attr("w:id")
			out = append(out, "ref#"+rid)
			continue
		}
		if id != "" {
			out = append(out, c.Name()+"#"+id)
		} else {
			out = append(out, c.Name())
		}
	}
	return out
}
