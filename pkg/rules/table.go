// Package rules turns decoded rule rows into validated rule sets and matches
// rules against clause text.
package rules

import (
	"fmt"
	"strings"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// Column names recognised in rule tables.
const (
	ColumnID            = "id"
	ColumnContractTypes = "contract_types"
	ColumnPartyScope    = "party_scope"
	ColumnRisk          = "risk"
	ColumnKeywords      = "keywords"
	ColumnPattern       = "regex"
	ColumnChecklist     = "checklist"
	ColumnSuggestA      = "suggest_a"
	ColumnSuggestB      = "suggest_b"
)

// PositionalColumns is the column order used when a table has no
// recognisable header.
var PositionalColumns = []string{
	ColumnContractTypes,
	ColumnPartyScope,
	ColumnRisk,
	ColumnKeywords,
	ColumnPattern,
	ColumnChecklist,
	ColumnSuggestA,
	ColumnSuggestB,
}

var columnAliases = map[string]string{
	"rule_id":       ColumnID,
	"contract_type": ColumnContractTypes,
	"contracttypes": ColumnContractTypes,
	"contracttype":  ColumnContractTypes,
	"partyscope":    ColumnPartyScope,
	"severity":      ColumnRisk,
	"keyword":       ColumnKeywords,
	"pattern":       ColumnPattern,
	"suggesta":      ColumnSuggestA,
	"suggestb":      ColumnSuggestB,
	"suggestion_a":  ColumnSuggestA,
	"suggestion_b":  ColumnSuggestB,

	"合同类型": ColumnContractTypes,
	"适用方":  ColumnPartyScope,
	"风险等级": ColumnRisk,
	"关键词":  ColumnKeywords,
	"正则":   ColumnPattern,
	"检查要点": ColumnChecklist,
	"甲方建议": ColumnSuggestA,
	"乙方建议": ColumnSuggestB,
}

// NormalizeColumn maps a header cell to a canonical column name, or "" when
// the header is not recognised.
func NormalizeColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	switch h {
	case ColumnID, ColumnContractTypes, ColumnPartyScope, ColumnRisk, ColumnKeywords,
		ColumnPattern, ColumnChecklist, ColumnSuggestA, ColumnSuggestB:
		return h
	}
	return columnAliases[h]
}

// FromTable converts a table whose first record is the header into rule rows.
// When the header names neither a risk nor a checklist column the
// PositionalColumns layout is used instead.
func FromTable(records [][]string) []core.RuleRow {
	if len(records) == 0 {
		return nil
	}

	columns := make([]string, len(records[0]))
	recognised := false
	for i, h := range records[0] {
		columns[i] = NormalizeColumn(h)
		if columns[i] == ColumnRisk || columns[i] == ColumnChecklist {
			recognised = true
		}
	}
	if !recognised {
		columns = PositionalColumns
	}

	rows := make([]core.RuleRow, 0, len(records)-1)
	for i, record := range records[1:] {
		fields := make(map[string]string, len(columns))
		for j, cell := range record {
			if j >= len(columns) || columns[j] == "" {
				continue
			}
			fields[columns[j]] = cell
		}
		rows = append(rows, core.RuleRow{Number: i + 1, Fields: fields})
	}
	return rows
}

// FromRecords converts structured records (decoded JSON or YAML objects) into
// rule rows. List values are joined with ";" so they split back the same way.
func FromRecords(records []map[string]any) []core.RuleRow {
	rows := make([]core.RuleRow, 0, len(records))
	for i, rec := range records {
		fields := make(map[string]string, len(rec))
		for k, v := range rec {
			col := NormalizeColumn(k)
			if col == "" {
				continue
			}
			fields[col] = stringify(v)
		}
		rows = append(rows, core.RuleRow{Number: i + 1, Fields: fields})
	}
	return rows
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ";")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprintf("%v", t)
	}
}
