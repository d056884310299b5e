// File: internal/csvio/writer.go
package csvio

import (
	"encoding/csv"
	"io"
)

// Writer writes rows with the schema's canonical headers.
type Writer struct {
	w      *csv.Writer
	schema *Schema
}

func NewWriter(w io.Writer, schema *Schema) *Writer {
	return &Writer{w: csv.NewWriter(w), schema: schema}
}

// WriteHeader writes the canonical header row.
func (w *Writer) WriteHeader() error {
	return w.w.Write(w.schema.Names())
}

// WriteRow writes one row; columns missing from values are left empty.
func (w *Writer) WriteRow(values map[string]string) error {
	row := make([]string, len(w.schema.Columns))
	for i, c := range w.schema.Columns {
		row[i] = values[c.Name]
	}
	return w.w.Write(row)
}

// Flush flushes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
