package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
)

type FieldType int

const (
	String FieldType = iota
	Number
	Date
	Bool
)

type (
	Field struct {
		Name string
		Type FieldType
	}

	// Schema declares the ordered field layout of one sheet: row position
	// N maps to Fields[N] on every read and write. Row 1 is the header
	// and never part of a data range.
	Schema struct {
		Sheet  string
		Fields []Field
	}
)

// firstDataRow is where data ranges start; row 1 is the header.
const firstDataRow = 2

func (s Schema) Validate() error {
	if s.Sheet == "" {
		return errors.New("schema: sheet name is required")
	}
	if len(s.Fields) == 0 {
		return errors.Errorf("schema %s: no fields declared", s.Sheet)
	}
	if s.Fields[0].Name != core.IDField || s.Fields[0].Type != String {
		return errors.Errorf("schema %s: first field must be the string %q", s.Sheet, core.IDField)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, field := range s.Fields {
		if field.Name == "" {
			return errors.Errorf("schema %s: unnamed field", s.Sheet)
		}
		if seen[field.Name] {
			return errors.Errorf("schema %s: duplicate field %q", s.Sheet, field.Name)
		}
		seen[field.Name] = true
	}
	return nil
}

// mustSchema validates a static schema at startup.
func mustSchema(s Schema) Schema {
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}

func (s Schema) lastColumn() string { return columnName(len(s.Fields)) }

// DataRange addresses all data rows, e.g. "students!A2:G".
func (s Schema) DataRange() string {
	return fmt.Sprintf("%s!A%d:%s", s.Sheet, firstDataRow, s.lastColumn())
}

// rowRange addresses the full row at the given 0-based snapshot position.
func (s Schema) rowRange(pos int) string {
	row := pos + firstDataRow
	return fmt.Sprintf("%s!A%d:%s%d", s.Sheet, row, s.lastColumn(), row)
}

// idCellRange addresses just the ID cell of a snapshot position; used to
// re-validate the target right before a positional write.
func (s Schema) idCellRange(pos int) string {
	row := pos + firstDataRow
	return fmt.Sprintf("%s!A%d:A%d", s.Sheet, row, row)
}

// idColumnRange addresses the whole ID column; one read of it re-validates
// every target of a batched positional write.
func (s Schema) idColumnRange() string {
	return fmt.Sprintf("%s!A%d:A", s.Sheet, firstDataRow)
}

// columnName converts a 1-based column number to its letter form.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// toRecord coerces one raw row into a Record per the declared field
// types. Blank cells (and cells that fail coercion) are absent from the
// record rather than zero-valued.
func (s Schema) toRecord(row []interface{}) core.Record {
	rec := make(core.Record, len(s.Fields))
	for i, field := range s.Fields {
		if i >= len(row) {
			break
		}
		raw := strings.TrimSpace(fmt.Sprint(row[i]))
		if raw == "" {
			continue
		}
		switch field.Type {
		case String:
			rec[field.Name] = raw
		case Number:
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				rec[field.Name] = n
			}
		case Date:
			if t, err := time.Parse(core.DateFormat, raw); err == nil {
				rec[field.Name] = t
			}
		case Bool:
			rec[field.Name] = strings.EqualFold(raw, "true")
		}
	}
	return rec
}

// toRow converts a Record back to the ordered raw row. Absent fields
// become blank cells.
func (s Schema) toRow(rec core.Record) []interface{} {
	row := make([]interface{}, len(s.Fields))
	for i, field := range s.Fields {
		val, ok := rec[field.Name]
		if !ok {
			row[i] = ""
			continue
		}
		switch v := val.(type) {
		case time.Time:
			if v.IsZero() {
				row[i] = ""
			} else {
				row[i] = v.Format(core.DateFormat)
			}
		case float64:
			row[i] = v
		case int:
			row[i] = float64(v)
		case bool:
			row[i] = v
		default:
			row[i] = fmt.Sprint(v)
		}
	}
	return row
}

// blankRow is what a logical delete writes: positions never shift.
func (s Schema) blankRow() []interface{} {
	row := make([]interface{}, len(s.Fields))
	for i := range row {
		row[i] = ""
	}
	return row
}

// Record field accessors with type defaults; used by the typed converters.

func recString(rec core.Record, field string) string {
	s, _ := rec[field].(string)
	return s
}

func recFloat(rec core.Record, field string) float64 {
	n, _ := rec[field].(float64)
	return n
}

func recBool(rec core.Record, field string) bool {
	b, _ := rec[field].(bool)
	return b
}

func recTime(rec core.Record, field string) time.Time {
	t, _ := rec[field].(time.Time)
	return t
}
