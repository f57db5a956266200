package cleaning

import (
	"strings"
	"time"

	"insurance-etl/internal/models"

	"github.com/shopspring/decimal"
)

// dateLayouts are the accepted input formats, tried in order. Output is
// always re-emitted as DD-MM-YYYY, which is also an accepted input so the
// normalizer is idempotent on its own output.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	models.DateLayout,
}

// NormalizeGender maps raw gender tokens onto the canonical enum.
// Unrecognized tokens (including empty) become Unknown.
func NormalizeGender(raw string) models.Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return models.GenderMale
	case "f", "female":
		return models.GenderFemale
	default:
		return models.GenderUnknown
	}
}

// NormalizeMaritalStatus maps raw marital-status tokens onto the canonical
// enum. Unrecognized tokens become Unknown.
func NormalizeMaritalStatus(raw string) models.MaritalStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single":
		return models.MaritalSingle
	case "married":
		return models.MaritalMarried
	case "divorced":
		return models.MaritalDivorced
	case "widowed":
		return models.MaritalWidowed
	default:
		return models.MaritalUnknown
	}
}

// NormalizeRegion maps raw region tokens onto the canonical enum.
func NormalizeRegion(raw string) models.Region {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "east":
		return models.RegionEast
	case "west":
		return models.RegionWest
	case "south":
		return models.RegionSouth
	case "central":
		return models.RegionCentral
	default:
		return models.RegionUnknown
	}
}

// NormalizeCountry rewrites recognized US spellings to "USA". Every other
// non-empty value is passed through unchanged so it stays visible for
// review rather than being silently forced to USA.
func NormalizeCountry(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "usa", "us", "u.s", "u.s.", "u.s.a", "u.s.a.", "america",
		"united states", "united states of america":
		return "USA"
	default:
		return trimmed
	}
}

// ComposeName builds "first [middle] last" when both first and last are
// present, otherwise falls back to the trimmed pre-existing full name.
// Returns ok=false when no usable name exists.
func ComposeName(first, middle, last, full string) (string, bool) {
	first = strings.TrimSpace(first)
	middle = strings.TrimSpace(middle)
	last = strings.TrimSpace(last)
	if first != "" && last != "" {
		parts := []string{first}
		if middle != "" {
			parts = append(parts, middle)
		}
		parts = append(parts, last)
		return strings.Join(parts, " "), true
	}
	if full = strings.TrimSpace(full); full != "" {
		return full, true
	}
	return "", false
}

// NormalizeDate parses a raw date against the accepted layouts in order and
// re-emits it as a calendar date. Failure or empty input yields the null
// sentinel; parsing never panics.
func NormalizeDate(raw string) models.NullDate {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.NullDate{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return models.NewDate(t)
		}
	}
	return models.NullDate{}
}

// NormalizeAmount strips currency noise ($, thousands separators,
// surrounding whitespace), parses the remainder as a decimal and rounds to
// two fractional digits. Negative or unparseable amounts become null; they
// are never clamped to zero.
func NormalizeAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}
}

// IsBlank reports whether a raw value is one of the blank sentinels that
// normalize to null: empty, whitespace-only, "nan" or "none" in any casing.
func IsBlank(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "nan", "none":
		return true
	default:
		return false
	}
}

// BlankToNull is the final total pass over free-text fields: blank
// sentinels become the nil pointer, everything else is trimmed.
func BlankToNull(raw string) *string {
	if IsBlank(raw) {
		return nil
	}
	trimmed := strings.TrimSpace(raw)
	return &trimmed
}
