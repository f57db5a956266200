package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ============================================================================
// TEST SUITE 1: PROVENANCE DETECTION
// ============================================================================

func TestDetectRegion(t *testing.T) {
	assert.Equal(t, "East", DetectRegion("raw/Insurance_details_US_East_day 3/extract.csv"))
	assert.Equal(t, "West", DetectRegion("raw/insurance_details_us_West_day_1/extract.csv"))
	assert.Equal(t, "misc", DetectRegion("raw/misc/extract.csv"), "unmatched pattern falls back to the parent folder name")
}

func TestDetectDay(t *testing.T) {
	assert.Equal(t, 3, DetectDay("raw/Insurance_details_US_East_day 3/day 3.csv"))
	assert.Equal(t, 12, DetectDay("raw/east/day_12.csv"))
	assert.Equal(t, 7, DetectDay("raw/east/day-7.csv"))
	assert.Equal(t, 5, DetectDay("raw/Insurance_details_US_East_day 5/extract.csv"), "day falls back to the folder path")
	assert.Equal(t, -1, DetectDay("raw/east/extract.csv"))
}

// ============================================================================
// TEST SUITE 2: CSV PARSING
// ============================================================================

func TestReadCSV_RaggedRows(t *testing.T) {
	content := "customer_id,premium_amt,payment_date\nC1,100\nC2,200,2024-03-05,extra\n"
	records, err := ReadCSV(strings.NewReader(content), "extract.csv", "East", 1)
	assert.NoError(t, err)
	assert.Len(t, records, 2)

	assert.Equal(t, "", records[0].Fields["payment_date"], "short rows are padded")
	assert.Equal(t, "2024-03-05", records[1].Fields["payment_date"], "long rows are truncated to the header")
	assert.Equal(t, "East", records[0].Region)
	assert.Equal(t, 1, records[0].DetectedDay)
	assert.Equal(t, "extract.csv", records[0].SourceFile)
}

func TestReadCSV_EmptyHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv", "East", 1)
	assert.Error(t, err)
}

// ============================================================================
// TEST SUITE 3: DIRECTORY SCANNING
// ============================================================================

func TestScanDir_MergesRegionFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Insurance_details_US_East_day 1/extract.csv",
		"customer_id,premium_amt\nC1,100\nC2,200\n")
	writeFile(t, root, "Insurance_details_US_West_day 1/extract.csv",
		"customer_id,premium_amt\nC3,300\n")
	writeFile(t, root, "Insurance_details_US_East_day 1/notes.txt", "ignored")

	res, err := ScanDir(root)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.FilesScanned, "non-CSV files are not scanned")
	assert.Len(t, res.Records, 3)
	assert.Empty(t, res.SkippedFiles)

	regions := make(map[string]int)
	for _, rec := range res.Records {
		regions[rec.Region]++
		assert.Equal(t, 1, rec.DetectedDay)
	}
	assert.Equal(t, map[string]int{"East": 2, "West": 1}, regions)
}

func TestScanDir_SkipsMalformedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Insurance_details_US_East_day 1/good.csv",
		"customer_id,premium_amt\nC1,100\n")
	writeFile(t, root, "Insurance_details_US_East_day 1/bad.csv",
		"customer_id,premium_amt\n\"unterminated\n")

	res, err := ScanDir(root)
	assert.NoError(t, err, "a malformed file is skipped, not fatal")
	assert.Len(t, res.Records, 1)
	assert.Len(t, res.SkippedFiles, 1)
}

func TestScanDir_NoFiles(t *testing.T) {
	root := t.TempDir()
	_, err := ScanDir(root)
	assert.Error(t, err, "an empty input directory fails the run")
}
