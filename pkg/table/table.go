package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

var (
	// ErrLengthMismatch is returned when columns differ in row count.
	ErrLengthMismatch = errors.New("column lengths differ")

	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Table is an ordered set of equal-length columns.
type Table struct {
	columns []Column
	byName  map[string]int
	rows    int
}

// New assembles columns, in the given order, into a table.
func New(columns ...Column) (*Table, error) {
	t := &Table{
		columns: columns,
		byName:  make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if _, dup := t.byName[col.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name())
		}
		t.byName[col.Name()] = i

		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d",
				ErrLengthMismatch, col.Name(), col.Len(), t.rows)
		}
	}

	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the columns in table order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name()
	}
	return names
}

// Column returns the named column, or nil if there is none.
func (t *Table) Column(name string) Column {
	i, ok := t.byName[name]
	if !ok {
		return nil
	}
	return t.columns[i]
}

// Row returns the values of row i in column order (nil for nulls).
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, col := range t.columns {
		row[j] = col.Value(i)
	}
	return row
}

// MarshalJSON renders the table as an array of row objects whose keys
// follow column order. Timestamps use RFC 3339 with nanoseconds.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	keys := make([][]byte, len(t.columns))
	for j, col := range t.columns {
		key, err := json.Marshal(col.Name())
		if err != nil {
			return nil, err
		}
		keys[j] = key
	}

	for i := 0; i < t.rows; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range t.columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')

			value, err := json.Marshal(jsonValue(col.Value(i)))
			if err != nil {
				return nil, fmt.Errorf("marshal %q row %d: %w", col.Name(), i, err)
			}
			buf.Write(value)
		}
		buf.WriteByte('}')
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339Nano)
	}
	return v
}

// WriteCSV writes a header row followed by one record per row. Nulls are
// written as empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(t.columns))
	for i := 0; i < t.rows; i++ {
		for j, col := range t.columns {
			record[j] = csvValue(col.Value(i))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
