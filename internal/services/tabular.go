package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type FileKind string

const (
	KindImage       FileKind = "image"
	KindCSV         FileKind = "csv"
	KindSpreadsheet FileKind = "spreadsheet"
	KindLegacyXLS   FileKind = "xls"
	KindJSON        FileKind = "json"
	KindUnsupported FileKind = ""
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrInvalidContent marks payloads that can never be processed, no
	// matter how often they are retried.
	ErrInvalidContent = errors.New("invalid file content")
	ErrNotTabular     = errors.New("file does not contain tabular data")
)

func invalidContent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidContent, fmt.Sprintf(format, args...))
}

// DetectKind selects a processing branch from the declared MIME type,
// falling back to the file extension for generic types.
func DetectKind(mimeType, name string) FileKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return KindImage
	case "text/csv", "application/csv", "text/comma-separated-values":
		return KindCSV
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return KindSpreadsheet
	case "application/vnd.ms-excel":
		if strings.EqualFold(filepath.Ext(name), ".csv") {
			// Windows browsers report CSV files with the Excel MIME type.
			return KindCSV
		}
		if strings.EqualFold(filepath.Ext(name), ".xlsx") {
			return KindSpreadsheet
		}
		return KindLegacyXLS
	case "application/json", "text/json":
		return KindJSON
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return KindImage
	case ".csv":
		return KindCSV
	case ".xlsx":
		return KindSpreadsheet
	case ".xls":
		return KindLegacyXLS
	case ".json":
		return KindJSON
	}
	return KindUnsupported
}

// CanonicalMimeType returns the MIME type stored for a file of the given kind.
func CanonicalMimeType(kind FileKind, declared, name string) string {
	switch kind {
	case KindCSV:
		return "text/csv"
	case KindSpreadsheet:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case KindLegacyXLS:
		return "application/vnd.ms-excel"
	case KindJSON:
		return "application/json"
	case KindImage:
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png":
			return "image/png"
		case ".webp":
			return "image/webp"
		case ".gif":
			return "image/gif"
		}
		if strings.HasPrefix(strings.ToLower(declared), "image/") {
			return strings.ToLower(declared)
		}
		return "image/jpeg"
	}
	return declared
}

// Table is a parsed sheet: Columns keeps header order, each row maps a
// column to a float64, a string or nil for blank cells.
type Table struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Sheets   []string         `json:"sheets,omitempty"`
	Sheet    string           `json:"sheet,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

func (t *Table) Head(n int) []map[string]any {
	if n <= 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// ParseRows turns a stored payload into rows. sheet selects a worksheet in
// spreadsheets and is ignored for other kinds.
func ParseRows(mimeType, name string, data []byte, sheet string) (*Table, error) {
	switch DetectKind(mimeType, name) {
	case KindCSV:
		return parseCSV(data)
	case KindSpreadsheet:
		return parseXLSX(data, sheet)
	case KindJSON:
		return parseJSONRows(data)
	case KindLegacyXLS:
		return nil, fmt.Errorf("%w: legacy .xls files cannot be parsed, save the workbook as .xlsx", ErrNotTabular)
	default:
		return nil, ErrNotTabular
	}
}

func parseCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, invalidContent("malformed CSV: %v", err)
		}
		records = append(records, rec)
	}
	return tableFromRecords(records)
}

func parseXLSX(data []byte, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, invalidContent("unreadable workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, invalidContent("workbook has no sheets")
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrNotTabular, sheet)
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, invalidContent("failed to read sheet %q: %v", sheet, err)
	}

	t, err := tableFromRecords(records)
	if err != nil {
		return nil, err
	}
	t.Sheets = sheets
	t.Sheet = sheet
	return t, nil
}

func parseJSONRows(data []byte) (*Table, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalidContent("JSON must be an array of objects: %v", err)
	}

	t := &Table{Rows: make([]map[string]any, 0, len(raw))}
	seen := map[string]bool{}
	for _, obj := range raw {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}

		row := make(map[string]any, len(obj))
		for k, v := range obj {
			if s, ok := v.(string); ok {
				row[k] = typedCell(s)
				continue
			}
			row[k] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func tableFromRecords(records [][]string) (*Table, error) {
	// Leading blank lines are common in exported sheets.
	for len(records) > 0 && blankRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return &Table{Columns: []string{}, Rows: []map[string]any{}}, nil
	}

	t := &Table{Columns: headerNames(records[0])}
	t.Rows = make([]map[string]any, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		if len(rec) > len(t.Columns) {
			t.Warnings = append(t.Warnings, fmt.Sprintf("row %d has %d cells, extra cells ignored", i+2, len(rec)))
		}
		row := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			if j < len(rec) {
				row[col] = typedCell(rec[j])
			} else {
				row[col] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func headerNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			used[name] = 1
		}
		names[i] = name
	}
	return names
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func typedCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, ok := parseFinite(s); ok {
		return f
	}
	return s
}

// parseFinite accepts only finite numbers; ParseFloat alone would turn text
// such as "Nan" or "inf" into values JSON cannot encode.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumericValue converts a parsed cell to a number. Blank cells count as 0.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		return 0, false
	case string:
		return parseFinite(n)
	default:
		return 0, false
	}
}

// CellString renders a parsed cell as a chart label.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}
