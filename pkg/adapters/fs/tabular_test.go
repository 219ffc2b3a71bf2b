package fs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/moshango/Contract-review-sub001/pkg/rules"
)

const sampleCSV = "contract_types,party_scope,risk,keywords,regex,checklist,suggest_A,suggest_B\n" +
	"通用合同,Neutral,high,付款;支付,,核对付款节点与条件,明确分期付款,争取预付款\n" +
	"采购合同,A,medium,违约,,检查违约责任是否对等,提高违约金,限制违约金上限\n"

func xlsxFixture(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecoders(t *testing.T) {
	t.Run("CSV", func(t *testing.T) {
		rows, err := NewCSVDecoder().Decode(strings.NewReader(sampleCSV))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "付款;支付", rows[0].Get(rules.ColumnKeywords))
		assert.Equal(t, "限制违约金上限", rows[1].Get(rules.ColumnSuggestB))
	})

	t.Run("CSV With BOM", func(t *testing.T) {
		rows, err := NewCSVDecoder().Decode(strings.NewReader("\ufeffrisk,checklist\nlow,x\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "low", rows[0].Get(rules.ColumnRisk))
	})

	t.Run("CSV Empty", func(t *testing.T) {
		_, err := NewCSVDecoder().Decode(strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("XLSX", func(t *testing.T) {
		data := xlsxFixture(t, [][]any{
			{"contract_types", "party_scope", "risk", "keywords", "regex", "checklist", "suggest_A", "suggest_B"},
			{"通用合同", "Neutral", "high", "付款;支付", "", "核对付款节点与条件", "明确分期付款", ""},
		})

		rows, err := NewXLSXDecoder("").Decode(bytes.NewReader(data))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "high", rows[0].Get(rules.ColumnRisk))
		assert.Equal(t, "核对付款节点与条件", rows[0].Get(rules.ColumnChecklist))
	})

	t.Run("XLSX Missing Sheet", func(t *testing.T) {
		data := xlsxFixture(t, [][]any{{"risk", "checklist"}})
		_, err := NewXLSXDecoder("Rules").Decode(bytes.NewReader(data))
		assert.Error(t, err)
	})

	t.Run("XLSX Garbage", func(t *testing.T) {
		_, err := NewXLSXDecoder("").Decode(strings.NewReader("not a workbook"))
		assert.Error(t, err)
	})

	t.Run("JSON List", func(t *testing.T) {
		input := `[{"id":"pay","risk":"high","keywords":["付款","支付"],"checklist":"核对付款"}]`
		rows, err := NewJSONDecoder().Decode(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "pay", rows[0].Get(rules.ColumnID))
		assert.Equal(t, "付款;支付", rows[0].Get(rules.ColumnKeywords))
	})

	t.Run("JSON Wrapped", func(t *testing.T) {
		input := `{"rules":[{"risk":"low","checklist":"x","priority":3}]}`
		rows, err := NewJSONDecoder().Decode(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("JSON Wrong Shape", func(t *testing.T) {
		_, err := NewJSONDecoder().Decode(strings.NewReader(`{"items":[]}`))
		assert.Error(t, err)

		_, err = NewJSONDecoder().Decode(strings.NewReader(`[1,2]`))
		assert.Error(t, err)
	})

	t.Run("YAML", func(t *testing.T) {
		input := `
rules:
  - id: pay
    contract_types: [采购合同, 服务合同]
    risk: high
    keywords:
      - 付款
      - 支付
    checklist: 核对付款节点
`
		rows, err := NewYAMLDecoder().Decode(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "采购合同;服务合同", rows[0].Get(rules.ColumnContractTypes))
	})

	t.Run("YAML Invalid", func(t *testing.T) {
		_, err := NewYAMLDecoder().Decode(strings.NewReader("rules: [unclosed"))
		assert.Error(t, err)
	})
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".csv", ".json", ".xlsx", ".yaml", ".yml"}, Extensions(DefaultDecoders("")))
}
