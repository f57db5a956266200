package cleaning

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"insurance-etl/internal/models"

	"github.com/shopspring/decimal"
)

// csvHeader is the canonical layout plus provenance, in output order.
var csvHeader = []string{
	ColCustomerID, ColCustomerName, ColCustomerSegment, ColMaritalStatus,
	ColGender, ColDOB, ColEffectiveStartDt, ColEffectiveEndDt,
	ColPolicyTypeID, ColPolicyType, ColPolicyTypeDesc, ColPolicyID,
	ColPolicyName, ColPremiumAmt, ColPolicyTerm, ColPolicyStartDt,
	ColPolicyEndDt, ColNextPremiumDt, ColActualPremiumPaidDt, ColCountry,
	ColRegion, ColStateOrProvince, ColCity, ColPostalCode,
	ColTotalPolicyAmt, ColPremiumPaidTillDate,
	"source_file", "detected_day",
}

// WriteCSV renders the cleaned dataset in the canonical column order. Null
// fields render as empty cells, dates as DD-MM-YYYY, amounts with two
// fractional digits.
func WriteCSV(w io.Writer, records []models.CleanRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.CustomerID,
			strOrEmpty(r.CustomerName),
			strOrEmpty(r.CustomerSegment),
			string(r.MaritalStatus),
			string(r.Gender),
			r.DOB.String(),
			r.EffectiveStartDt.String(),
			r.EffectiveEndDt.String(),
			strOrEmpty(r.PolicyTypeID),
			strOrEmpty(r.PolicyType),
			strOrEmpty(r.PolicyTypeDesc),
			r.PolicyID,
			strOrEmpty(r.PolicyName),
			amountOrEmpty(r.PremiumAmt),
			strOrEmpty(r.PolicyTerm),
			r.PolicyStartDt.String(),
			r.PolicyEndDt.String(),
			r.NextPremiumDt.String(),
			r.ActualPremiumPaidDt.String(),
			strOrEmpty(r.Country),
			string(r.Region),
			strOrEmpty(r.StateOrProvince),
			strOrEmpty(r.City),
			strOrEmpty(r.PostalCode),
			amountOrEmpty(r.TotalPolicyAmt),
			amountOrEmpty(r.PremiumPaidTillDate),
			r.SourceFile,
			strconv.Itoa(r.DetectedDay),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a cleaned dataset previously written by WriteCSV. It is used
// to resume a run from the staged checkpoint without reprocessing raw files.
func ReadCSV(r io.Reader) ([]models.CleanRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected checkpoint layout: got %d columns, want %d", len(header), len(csvHeader))
	}
	var records []models.CleanRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		day, _ := strconv.Atoi(row[27])
		records = append(records, models.CleanRecord{
			CustomerID:          row[0],
			CustomerName:        emptyToNil(row[1]),
			CustomerSegment:     emptyToNil(row[2]),
			MaritalStatus:       models.MaritalStatus(row[3]),
			Gender:              models.Gender(row[4]),
			DOB:                 parseCanonicalDate(row[5]),
			EffectiveStartDt:    parseCanonicalDate(row[6]),
			EffectiveEndDt:      parseCanonicalDate(row[7]),
			PolicyTypeID:        emptyToNil(row[8]),
			PolicyType:          emptyToNil(row[9]),
			PolicyTypeDesc:      emptyToNil(row[10]),
			PolicyID:            row[11],
			PolicyName:          emptyToNil(row[12]),
			PremiumAmt:          parseCanonicalAmount(row[13]),
			PolicyTerm:          emptyToNil(row[14]),
			PolicyStartDt:       parseCanonicalDate(row[15]),
			PolicyEndDt:         parseCanonicalDate(row[16]),
			NextPremiumDt:       parseCanonicalDate(row[17]),
			ActualPremiumPaidDt: parseCanonicalDate(row[18]),
			Country:             emptyToNil(row[19]),
			Region:              models.Region(row[20]),
			StateOrProvince:     emptyToNil(row[21]),
			City:                emptyToNil(row[22]),
			PostalCode:          emptyToNil(row[23]),
			TotalPolicyAmt:      parseCanonicalAmount(row[24]),
			PremiumPaidTillDate: parseCanonicalAmount(row[25]),
			SourceFile:          row[26],
			DetectedDay:         day,
		})
	}
	return records, nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseCanonicalDate(s string) models.NullDate {
	if s == "" {
		return models.NullDate{}
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return models.NullDate{}
	}
	return models.NullDate{Time: t, Valid: true}
}

func parseCanonicalAmount(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amountOrEmpty(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
