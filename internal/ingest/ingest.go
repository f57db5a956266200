package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"insurance-etl/internal/models"
)

var (
	regionPattern   = regexp.MustCompile(`(?i)Insurance_details_US_([A-Za-z]+)_day`)
	dayIndexPattern = regexp.MustCompile(`(?i)day[ _-]?(\d+)`)
)

// Result is the outcome of merging one day's per-region extracts.
type Result struct {
	Records      []models.RawRecord
	FilesScanned int
	SkippedFiles []string
}

// ScanDir walks a raw-extract directory, reads every CSV it finds and
// merges the rows into one ordered batch of raw records. Files that fail
// to parse are skipped and reported, never fatal.
func ScanDir(root string) (*Result, error) {
	res := &Result{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		res.FilesScanned++

		f, err := os.Open(path)
		if err != nil {
			log.Printf("[Ingest] skipping unreadable file %s: %v", path, err)
			res.SkippedFiles = append(res.SkippedFiles, path)
			return nil
		}
		defer f.Close()

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		records, err := ReadCSV(f, rel, DetectRegion(path), DetectDay(path))
		if err != nil {
			log.Printf("[Ingest] skipping malformed file %s: %v", path, err)
			res.SkippedFiles = append(res.SkippedFiles, path)
			return nil
		}
		res.Records = append(res.Records, records...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan raw directory %s: %w", root, err)
	}
	if res.FilesScanned == 0 {
		return nil, fmt.Errorf("no CSV files found under %s", root)
	}

	log.Printf("[Ingest] scanned %d files, %d rows, %d skipped", res.FilesScanned, len(res.Records), len(res.SkippedFiles))
	return res, nil
}

// ReadCSV parses one extract into raw records, attaching the provenance
// columns. Everything is read as a string; typing happens in the cleaner.
// Short rows are padded, long rows truncated to the header width.
func ReadCSV(r io.Reader, sourceFile, region string, day int) ([]models.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var records []models.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				fields[name] = row[i]
			} else {
				fields[name] = ""
			}
		}
		records = append(records, models.RawRecord{
			Fields:      fields,
			Region:      region,
			SourceFile:  sourceFile,
			DetectedDay: day,
		})
	}
	return records, nil
}

// DetectRegion pulls the region out of the extract folder naming
// convention (Insurance_details_US_<Region>_day). Falls back to the parent
// folder name when the pattern does not match.
func DetectRegion(path string) string {
	parent := filepath.Base(filepath.Dir(path))
	if m := regionPattern.FindStringSubmatch(parent); m != nil {
		return m[1]
	}
	return parent
}

// DetectDay extracts the day index from the file name, falling back to the
// folder path. Unknown day is -1.
func DetectDay(path string) int {
	if m := dayIndexPattern.FindStringSubmatch(filepath.Base(path)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := dayIndexPattern.FindStringSubmatch(filepath.Dir(path)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return -1
}
