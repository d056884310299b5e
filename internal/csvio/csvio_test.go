// File: internal/csvio/csvio_test.go
package csvio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return NewSchema(
		Column{Name: "inspection_code", Aliases: []string{"Inspection No", "insp code", "Inspection #"}, Required: true},
		Column{Name: "full_name", Aliases: []string{"Customer Name", "name"}, Required: true},
		Column{Name: "address", Aliases: []string{"Address Line"}},
		Column{Name: "phone", Aliases: []string{"Mobile", "contact no"}},
	)
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Inspection Code":     "inspection_code",
		"\ufeffinspection-code": "inspection_code",
		"  INSPECTION.CODE ":  "inspection_code",
		"Inspection #":        "inspection_no",
		"Customer  Name":      "customer_name",
		"zone/code":           "zone_code",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestSchema_Canonical(t *testing.T) {
	s := testSchema()
	for _, h := range []string{"Inspection No", "INSP CODE", "inspection_code", "Inspection #"} {
		name, ok := s.Canonical(h)
		require.True(t, ok, h)
		assert.Equal(t, "inspection_code", name)
	}
	_, ok := s.Canonical("meter colour")
	assert.False(t, ok)
}

func TestParse_QuotedFieldsAndAliases(t *testing.T) {
	input := "Insp Code,Customer Name,Address Line,Mobile,Notes\n" +
		"IC-001,\"Rahman, Abdur\",\"House 12, Road 3\",01711000000,vip\n" +
		"IC-002,\"Said \"\"Bablu\"\" Khan\",\"Line one\nLine two\",,\n" +
		"\n" +
		",,,,\n"

	res, err := Parse(strings.NewReader(input), testSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{"inspection_code", "full_name", "address", "phone"}, res.Columns)
	assert.Equal(t, []string{"Notes"}, res.Ignored)
	assert.Equal(t, 2, res.TotalRows)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Errors)

	assert.Equal(t, "Rahman, Abdur", res.Records[0].Get("full_name"))
	assert.Equal(t, "House 12, Road 3", res.Records[0].Get("address"))
	assert.Equal(t, 2, res.Records[0].Row)
	assert.Equal(t, `Said "Bablu" Khan`, res.Records[1].Get("full_name"))
	assert.Equal(t, "Line one\nLine two", res.Records[1].Get("address"))
	assert.Equal(t, 3, res.Records[1].Row)
}

func TestParse_RequiredValuesReported(t *testing.T) {
	input := "inspection_code,name\nIC-1,Alice\n,Bob\nIC-3,\n"

	res, err := Parse(strings.NewReader(input), testSchema())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRows)
	require.Len(t, res.Records, 1)
	assert.Equal(t, []RowError{
		{Row: 3, Field: "inspection_code", Message: "value is required"},
		{Row: 4, Field: "full_name", Message: "value is required"},
	}, res.Errors)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("name,phone\nAlice,1\n"), testSchema())
	var he *HeaderError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, []string{"inspection_code"}, he.Missing)
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""), testSchema())
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestWriter_RoundTripThroughParse(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, testSchema())
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteRow(map[string]string{"inspection_code": "IC-9", "full_name": "Nasrin, B.", "address": "Dhaka"}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "inspection_code,full_name,address,phone\nIC-9,\"Nasrin, B.\",Dhaka,\n", buf.String())

	res, err := Parse(&buf, testSchema())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Nasrin, B.", res.Records[0].Get("full_name"))
}
