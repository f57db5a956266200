package rules

import (
	"bytes"
	"testing"
	"time"

	"insurance-etl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

// workbookBytes renders a rule workbook in memory: a header row followed by
// the given data rows.
func workbookBytes(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []any{"region", "month_from", "month_to", "min_days", "max_days", "fee_kind", "fee_value"}
	assert.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		assert.NoError(t, err)
		assert.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	assert.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestImportWorkbook_FullScopes(t *testing.T) {
	rules, err := ImportWorkbook(workbookBytes(t, [][]any{
		{"East", "January", "March", 10, 30, "flat", "25"},
		{"", "", "", "", "", "percentage", "0.015"},
	}))
	assert.NoError(t, err)
	assert.Len(t, rules, 2)

	assert.Equal(t, models.RegionEast, *rules[0].Region)
	assert.Equal(t, time.January, *rules[0].MonthFrom)
	assert.Equal(t, time.March, *rules[0].MonthTo)
	assert.Equal(t, 10, rules[0].MinDays)
	assert.Equal(t, 30, *rules[0].MaxDays)
	assert.Equal(t, models.FeeFlat, rules[0].Kind)
	assert.Equal(t, "25", rules[0].Value.String())

	// Blank scope cells mean "any".
	assert.Nil(t, rules[1].Region)
	assert.Nil(t, rules[1].MonthFrom)
	assert.Nil(t, rules[1].MonthTo)
	assert.Equal(t, 0, rules[1].MinDays)
	assert.Nil(t, rules[1].MaxDays)
	assert.Equal(t, models.FeePercentage, rules[1].Kind)
}

func TestImportWorkbook_NumericMonths(t *testing.T) {
	rules, err := ImportWorkbook(workbookBytes(t, [][]any{
		{"West", 3, 6, "", "", "FLAT", "10"},
	}))
	assert.NoError(t, err)
	assert.Equal(t, time.March, *rules[0].MonthFrom)
	assert.Equal(t, time.June, *rules[0].MonthTo)
	assert.Equal(t, models.FeeFlat, rules[0].Kind, "fee kind is case-insensitive")
}

func TestImportWorkbook_SheetOrderPreserved(t *testing.T) {
	rules, err := ImportWorkbook(workbookBytes(t, [][]any{
		{"East", "", "", "", "", "flat", "1"},
		{"West", "", "", "", "", "flat", "2"},
		{"South", "", "", "", "", "flat", "3"},
	}))
	assert.NoError(t, err)
	assert.Equal(t, "1", rules[0].Value.String())
	assert.Equal(t, "2", rules[1].Value.String())
	assert.Equal(t, "3", rules[2].Value.String())
}

func TestImportWorkbook_MalformedRowsFail(t *testing.T) {
	cases := []struct {
		name string
		row  []any
		want string
	}{
		{"unknown region", []any{"North", "", "", "", "", "flat", "25"}, "unknown region"},
		{"bad month", []any{"", "Smarch", "", "", "", "flat", "25"}, "unrecognized month"},
		{"month out of range", []any{"", 13, "", "", "", "flat", "25"}, "out of range"},
		{"bad fee kind", []any{"", "", "", "", "", "tiered", "25"}, "unknown fee kind"},
		{"bad fee value", []any{"", "", "", "", "", "flat", "lots"}, "invalid fee value"},
		{"bad min days", []any{"", "", "", "ten", "", "flat", "25"}, "invalid min_days"},
		{"negative min days", []any{"", "", "", -3, "", "flat", "25"}, "negative min_days"},
		{"negative fee value", []any{"", "", "", "", "", "flat", "-5"}, "negative fee value"},
		{"inverted month window", []any{"", "June", "March", "", "", "flat", "25"}, "can never match"},
	}

	for _, tc := range cases {
		_, err := ImportWorkbook(workbookBytes(t, [][]any{tc.row}))
		assert.Error(t, err, tc.name)
		assert.Contains(t, err.Error(), tc.want, tc.name)
		assert.Contains(t, err.Error(), "row 2", "%s: errors name the offending row", tc.name)
	}
}

func TestImportWorkbook_MissingRequiredColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	header := []any{"region", "fee_kind"}
	assert.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	var buf bytes.Buffer
	assert.NoError(t, f.Write(&buf))

	_, err := ImportWorkbook(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fee_value")
}

func TestImportWorkbook_EmptyRowsSkipped(t *testing.T) {
	rules, err := ImportWorkbook(workbookBytes(t, [][]any{
		{"East", "", "", "", "", "flat", "25"},
		{"", "", "", "", "", "", ""},
		{"West", "", "", "", "", "flat", "30"},
	}))
	assert.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestImportWorkbook_NoRules(t *testing.T) {
	_, err := ImportWorkbook(workbookBytes(t, nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no rules")
}
