package main

import (
	"archive/zip"
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const cliRules = "id,contract_types,risk,keywords,checklist\n" +
	"pay-1,通用,high,付款,核对付款节点\n" +
	"ip-1,技术服务合同,medium,知识产权,确认成果归属\n"

const cliDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>1. 付款方式</w:t></w:r></w:p><w:p><w:r><w:t>2. 知识产权</w:t></w:r></w:p></w:body></w:document>`

const cliContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`

// buildReviewBinary builds the review binary into dir and returns its path.
func buildReviewBinary(t *testing.T, dir string) string {
	t.Helper()
	bin := filepath.Join(dir, "review.exe")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build review: %v\n%s", err, string(out))
	}
	return bin
}

func runCmd(t *testing.T, dir, bin string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "REVIEW_RULES_PATH=", "REVIEW_COMMENT_AUTHOR=")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("review %v failed: %v\n%s", args, err, string(out))
	}
	return string(out)
}

func writeDocx(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range []struct{ name, data string }{
		{"[Content_Types].xml", cliContentTypes},
		{"word/document.xml", cliDocument},
	} {
		fw, err := w.Create(p.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(p.data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCLI(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the review binary")
	}

	tempDir := t.TempDir()
	bin := buildReviewBinary(t, tempDir)

	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"rules.csv":    cliRules,
		"review.yaml":  "annotation:\n  author: 法务部\n  initials: FW\n",
		"clauses.json": `[{"id":"c1","heading":"付款方式","text":"买方应在验收后付款。"},{"id":"c2","heading":"知识产权","text":"知识产权归买方所有。"}]`,
		"payload.json": `{"issues":[{"clauseId":"c1","severity":"HIGH","finding":"付款期限不明确"},{"clauseId":"c9","finding":"不存在"}]}`,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(workDir, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	writeDocx(t, filepath.Join(workDir, "contract.docx"))

	t.Run("Version", func(t *testing.T) {
		out := runCmd(t, workDir, bin, "version")
		if !strings.HasPrefix(out, "review version ") {
			t.Errorf("unexpected version output: %q", out)
		}
	})

	t.Run("Rules List", func(t *testing.T) {
		out := runCmd(t, workDir, bin, "rules", "list", "--risk", "high")
		if !strings.Contains(out, "pay-1") || strings.Contains(out, "ip-1") {
			t.Errorf("expected only pay-1, got:\n%s", out)
		}
	})

	t.Run("Rules Match", func(t *testing.T) {
		out := runCmd(t, workDir, bin, "rules", "match", "--clauses", "clauses.json", "--contract-type", "技术服务合同")
		if !strings.Contains(out, "c1") || !strings.Contains(out, "c2") {
			t.Errorf("expected both clauses to match, got:\n%s", out)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		out := runCmd(t, workDir, bin, "validate", "payload.json")
		if !strings.Contains(out, "valid: 2 issue(s)") {
			t.Errorf("unexpected validate output:\n%s", out)
		}
	})

	t.Run("Anchors Then Annotate", func(t *testing.T) {
		runCmd(t, workDir, bin, "anchors", "insert", "contract.docx", "clauses.json", "-o", "anchored.docx")

		out := runCmd(t, workDir, bin, "anchors", "list", "anchored.docx")
		if strings.Count(out, "anc-") != 2 {
			t.Errorf("expected two anchors, got:\n%s", out)
		}

		out = runCmd(t, workDir, bin, "annotate", "anchored.docx", "payload.json", "-o", "reviewed.docx", "--cleanup-anchors")
		if !strings.Contains(out, "1 of 2 issue(s) applied") {
			t.Errorf("unexpected annotate output:\n%s", out)
		}

		zr, err := zip.OpenReader(filepath.Join(workDir, "reviewed.docx"))
		if err != nil {
			t.Fatal(err)
		}
		defer zr.Close()
		found := false
		for _, f := range zr.File {
			if f.Name == "word/comments.xml" {
				found = true
			}
		}
		if !found {
			t.Error("reviewed.docx has no comments part")
		}

		out = runCmd(t, workDir, bin, "anchors", "list", "reviewed.docx")
		if strings.Contains(out, "anc-") {
			t.Errorf("expected anchors removed, got:\n%s", out)
		}
	})

	t.Run("Anchors From Document Headings", func(t *testing.T) {
		out := runCmd(t, workDir, bin, "anchors", "clauses", "contract.docx")
		if !strings.Contains(out, `"heading": "1. 付款方式"`) || !strings.Contains(out, `"id": "c2"`) {
			t.Errorf("unexpected clauses output:\n%s", out)
		}

		runCmd(t, workDir, bin, "anchors", "insert", "contract.docx", "-o", "extracted.docx")
		out = runCmd(t, workDir, bin, "anchors", "list", "extracted.docx")
		if !strings.Contains(out, "anc-c1-") || !strings.Contains(out, "anc-c2-") {
			t.Errorf("expected anchors for c1 and c2, got:\n%s", out)
		}
	})
}
