// File: internal/csvio/schema.go
package csvio

import (
	"strings"
	"unicode"
)

// Column describes one canonical CSV column and the header spellings that map to it.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
}

// Schema is the static lookup table used to normalise incoming headers.
type Schema struct {
	Columns []Column
	lookup  map[string]string
}

// NewSchema builds a schema and its alias lookup table.
func NewSchema(columns ...Column) *Schema {
	s := &Schema{Columns: columns, lookup: make(map[string]string)}
	for _, c := range columns {
		s.lookup[NormalizeHeader(c.Name)] = c.Name
		for _, a := range c.Aliases {
			s.lookup[NormalizeHeader(a)] = c.Name
		}
	}
	return s
}

// Canonical returns the canonical column name for a raw header.
func (s *Schema) Canonical(header string) (string, bool) {
	name, ok := s.lookup[NormalizeHeader(header)]
	return name, ok
}

// Names returns the canonical column names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Required returns the names of the required columns.
func (s *Schema) Required() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// NormalizeHeader lower-cases a header, strips a UTF-8 BOM and surrounding
// punctuation, and collapses runs of spaces, dashes, dots and slashes into
// a single underscore. "Inspection-Code " and "inspection.code" both become
// "inspection_code".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))

	var b strings.Builder
	pendingSep := false
	for _, r := range h {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '#':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteString("no")
		default:
			pendingSep = true
		}
	}
	return b.String()
}
