// File: internal/csvio/reader.go
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is one data row keyed by canonical column name.
type Record struct {
	Row    int
	Values map[string]string
}

// Get returns the trimmed value of a canonical column, or "".
func (r Record) Get(name string) string {
	return r.Values[name]
}

// RowError reports a problem with one row of an uploaded file.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// HeaderError is returned when required columns are missing from the header row.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// ErrEmptyFile is returned for a file without a header row.
var ErrEmptyFile = errors.New("csv file is empty")

// ParseResult holds the valid records and the per-row errors of a parse.
type ParseResult struct {
	Columns   []string
	Ignored   []string
	Records   []Record
	Errors    []RowError
	TotalRows int
}

// Parse reads a CSV file in a single pass. Quoted fields may contain commas,
// doubled quotes and newlines. Headers are mapped through the schema and
// unknown columns are ignored. Rows missing a required value are reported
// in Errors and left out of Records.
func Parse(r io.Reader, schema *Schema) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	result := &ParseResult{}
	positions := make(map[int]string, len(header))
	seen := make(map[string]bool)
	for i, h := range header {
		name, ok := schema.Canonical(h)
		if !ok || seen[name] {
			if strings.TrimSpace(h) != "" {
				result.Ignored = append(result.Ignored, strings.TrimSpace(h))
			}
			continue
		}
		seen[name] = true
		positions[i] = name
		result.Columns = append(result.Columns, name)
	}

	var missing []string
	for _, req := range schema.Required() {
		if !seen[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				result.TotalRows++
				result.Errors = append(result.Errors, RowError{Row: pe.StartLine, Message: pe.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(fields) {
			continue
		}
		line, _ := cr.FieldPos(0)
		result.TotalRows++

		rec := Record{Row: line, Values: make(map[string]string, len(positions))}
		for i, v := range fields {
			if name, ok := positions[i]; ok {
				rec.Values[name] = strings.TrimSpace(v)
			}
		}

		valid := true
		for _, req := range schema.Required() {
			if rec.Values[req] == "" {
				result.Errors = append(result.Errors, RowError{Row: line, Field: req, Message: "value is required"})
				valid = false
			}
		}
		if valid {
			result.Records = append(result.Records, rec)
		}
	}
	return result, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
