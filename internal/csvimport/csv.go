package csvimport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
)

// Cell is one typed value of a row. Value is nil, bool, float64 or string.
type Cell struct {
	Column string
	Value  any
}

// Row holds the cells of one record in header order.
type Row []Cell

// Get returns the value under column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the row as an object whose keys follow header order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is a parsed CSV file.
type Table struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

var floatPattern = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// Parse reads a CSV document whose first record is the header. Every later
// record becomes a Row keyed by the header. Short records are padded with nil
// cells; records longer than the header are rejected. On any error no table is
// returned.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid("the file is empty", nil)
	}
	if err != nil {
		return nil, invalid("could not read the header", err)
	}

	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, invalid(fmt.Sprintf("column %d has no name", i+1), nil)
		}
		if _, dup := seen[h]; dup {
			return nil, invalid(fmt.Sprintf("column %q appears twice", h), nil)
		}
		seen[h] = struct{}{}
		header[i] = h
	}

	table := &Table{Header: header, Rows: []Row{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalid("malformed record", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, invalid(fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(header)), nil)
		}

		row := make(Row, len(header))
		for i, col := range header {
			row[i].Column = col
			if i < len(record) {
				row[i].Value = Infer(record[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Infer converts a raw field: empty becomes nil, true/false become bool, decimal
// numbers become float64, anything else stays a string.
func Infer(field string) any {
	if field == "" {
		return nil
	}
	switch strings.ToLower(field) {
	case "true":
		return true
	case "false":
		return false
	}
	if floatPattern.MatchString(field) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			return v
		}
	}
	return field
}

// FormatValue renders an inferred value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func invalid(msg string, err error) error {
	return apperrors.Wrap(apperrors.CodeCSVInvalid, "Could not parse CSV file: "+msg+".", err)
}
