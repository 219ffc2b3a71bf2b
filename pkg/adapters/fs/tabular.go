package fs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/rules"
)

// Decoder turns the raw bytes of a rule resource into rule rows.
type Decoder interface {
	Decode(r io.Reader) ([]core.RuleRow, error)
}

// DefaultDecoders returns the standard decoders keyed by file extension.
// sheet selects the XLSX worksheet; empty means the first one.
func DefaultDecoders(sheet string) map[string]Decoder {
	return map[string]Decoder{
		".csv":  NewCSVDecoder(),
		".xlsx": NewXLSXDecoder(sheet),
		".json": NewJSONDecoder(),
		".yaml": NewYAMLDecoder(),
		".yml":  NewYAMLDecoder(),
	}
}

// --- CSV Decoder ---

// CSVDecoder reads a header row followed by one rule per record.
type CSVDecoder struct {
	Comma rune
}

// NewCSVDecoder creates a comma separated decoder.
func NewCSVDecoder() *CSVDecoder {
	return &CSVDecoder{Comma: ','}
}

func (d *CSVDecoder) Decode(r io.Reader) ([]core.RuleRow, error) {
	reader := csv.NewReader(r)
	if d.Comma != 0 {
		reader.Comma = d.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read csv header: %w", io.EOF)
	}
	return rules.FromTable(records), nil
}

// --- XLSX Decoder ---

// XLSXDecoder reads rules from one worksheet of a workbook. The first row is
// the header.
type XLSXDecoder struct {
	Sheet string
}

// NewXLSXDecoder creates a workbook decoder for sheet (empty = first sheet).
func NewXLSXDecoder(sheet string) *XLSXDecoder {
	return &XLSXDecoder{Sheet: sheet}
}

func (d *XLSXDecoder) Decode(r io.Reader) ([]core.RuleRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheet := d.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("invalid xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return rules.FromTable(records), nil
}

// --- JSON Decoder ---

// JSONDecoder accepts a list of rule objects or an object with a "rules" list.
type JSONDecoder struct{}

// NewJSONDecoder creates a JSON rule decoder.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

func (d *JSONDecoder) Decode(r io.Reader) ([]core.RuleRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var payload any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	records, err := ruleRecords(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return rules.FromRecords(records), nil
}

// --- YAML Decoder ---

// YAMLDecoder accepts the same shapes as JSONDecoder.
type YAMLDecoder struct{}

// NewYAMLDecoder creates a YAML rule decoder.
func NewYAMLDecoder() *YAMLDecoder {
	return &YAMLDecoder{}
}

func (d *YAMLDecoder) Decode(r io.Reader) ([]core.RuleRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	records, err := ruleRecords(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return rules.FromRecords(records), nil
}

// --- Helpers ---

func ruleRecords(payload any) ([]map[string]any, error) {
	if m, ok := payload.(map[string]any); ok {
		list, found := m["rules"]
		if !found {
			return nil, fmt.Errorf("expected a list of rules or a %q key", "rules")
		}
		payload = list
	}

	list, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of rules, got %T", payload)
	}

	records := make([]map[string]any, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rule %d: expected an object, got %T", i+1, item)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Extensions lists the extensions handled by decoders, sorted.
func Extensions(decoders map[string]Decoder) []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
