package rules

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"insurance-etl/internal/cleaning"
	"insurance-etl/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Expected header columns of a rule workbook, matched case-insensitively.
const (
	colRegion    = "region"
	colMonthFrom = "month_from"
	colMonthTo   = "month_to"
	colMinDays   = "min_days"
	colMaxDays   = "max_days"
	colFeeKind   = "fee_kind"
	colFeeValue  = "fee_value"
)

// ImportWorkbook reads late-fee rules from the first sheet of an Excel
// workbook. A blank scope cell means "any" for that dimension; a blank
// max_days leaves the slab open-ended. Row order defines the insertion
// sequence used for tie-breaking, so rules come back in sheet order.
// Unlike data rows, a malformed rule row is an operator error and fails
// the import.
func ImportWorkbook(r io.Reader) ([]models.LateFeeRule, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("rule workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("rule workbook sheet %s is empty", sheets[0])
	}

	idx := make(map[string]int)
	for i, name := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colFeeKind, colFeeValue} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("rule workbook is missing the %q column", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parsed []models.LateFeeRule
	for n, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rowNum := n + 2 // 1-based, after the header

		rule := models.LateFeeRule{ID: uuid.New()}

		if v := cell(row, colRegion); v != "" {
			region := cleaning.NormalizeRegion(v)
			if region == models.RegionUnknown {
				return nil, fmt.Errorf("row %d: unknown region %q", rowNum, v)
			}
			rule.Region = &region
		}
		var err error
		if rule.MonthFrom, err = parseMonth(cell(row, colMonthFrom)); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if rule.MonthTo, err = parseMonth(cell(row, colMonthTo)); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if rule.MonthFrom != nil && rule.MonthTo != nil && *rule.MonthFrom > *rule.MonthTo {
			return nil, fmt.Errorf("row %d: month window %s..%s can never match", rowNum, *rule.MonthFrom, *rule.MonthTo)
		}
		if v := cell(row, colMinDays); v != "" {
			if rule.MinDays, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: invalid min_days %q", rowNum, v)
			}
			if rule.MinDays < 0 {
				return nil, fmt.Errorf("row %d: negative min_days %d", rowNum, rule.MinDays)
			}
		}
		if v := cell(row, colMaxDays); v != "" {
			maxDays, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid max_days %q", rowNum, v)
			}
			rule.MaxDays = &maxDays
		}

		rule.Kind = models.FeeKind(strings.ToLower(cell(row, colFeeKind)))
		if !models.IsValidFeeKind(rule.Kind) {
			return nil, fmt.Errorf("row %d: unknown fee kind %q", rowNum, cell(row, colFeeKind))
		}
		if rule.Value, err = decimal.NewFromString(cell(row, colFeeValue)); err != nil {
			return nil, fmt.Errorf("row %d: invalid fee value %q", rowNum, cell(row, colFeeValue))
		}
		if rule.Value.IsNegative() {
			return nil, fmt.Errorf("row %d: negative fee value %s", rowNum, rule.Value)
		}

		parsed = append(parsed, rule)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("rule workbook contains no rules")
	}
	return parsed, nil
}

// parseMonth accepts a month number (1-12) or an English month name.
// Empty means "any".
func parseMonth(v string) (*time.Month, error) {
	if v == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 || n > 12 {
			return nil, fmt.Errorf("month %d out of range", n)
		}
		m := time.Month(n)
		return &m, nil
	}
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(v, m.String()) {
			month := m
			return &month, nil
		}
	}
	return nil, fmt.Errorf("unrecognized month %q", v)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
