// Package table provides an immutable, column-oriented table with typed,
// nullable columns.
//
// Columns are built once with a Builder and never modified afterwards.
// Low-cardinality strings use a dictionary-encoded Category column so that a
// value repeated across thousands of rows is stored once.
package table

import "time"

// Type identifies the logical type of a column.
type Type string

const (
	// TypeString is a nullable UTF-8 string.
	TypeString Type = "string"

	// TypeCategory is a nullable dictionary-encoded string.
	TypeCategory Type = "category"

	// TypeInt32 is a nullable 32-bit signed integer.
	TypeInt32 Type = "int32"

	// TypeTimestamp is a nullable instant in time (UTC).
	TypeTimestamp Type = "timestamp"
)

// Column is a named, typed sequence of nullable values.
type Column interface {
	// Name returns the column name.
	Name() string

	// Type returns the logical column type.
	Type() Type

	// Len returns the number of rows.
	Len() int

	// IsNull reports whether row i holds no value.
	IsNull(i int) bool

	// Value returns the Go value at row i: string, int32 or time.Time,
	// or nil when the row is null.
	Value(i int) any
}

// StringColumn holds nullable strings.
type StringColumn struct {
	name   string
	values []string
	valid  []bool
}

func (c *StringColumn) Name() string      { return c.name }
func (c *StringColumn) Type() Type        { return TypeString }
func (c *StringColumn) Len() int          { return len(c.values) }
func (c *StringColumn) IsNull(i int) bool { return !c.valid[i] }

func (c *StringColumn) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	return c.values[i]
}

// String returns the string at row i and whether it is non-null.
func (c *StringColumn) String(i int) (string, bool) {
	return c.values[i], c.valid[i]
}

// CategoryColumn holds nullable strings as indexes into a dictionary of
// distinct values.
type CategoryColumn struct {
	name       string
	codes      []int32 // -1 is null
	categories []string
}

func (c *CategoryColumn) Name() string      { return c.name }
func (c *CategoryColumn) Type() Type        { return TypeCategory }
func (c *CategoryColumn) Len() int          { return len(c.codes) }
func (c *CategoryColumn) IsNull(i int) bool { return c.codes[i] < 0 }

func (c *CategoryColumn) Value(i int) any {
	if c.codes[i] < 0 {
		return nil
	}
	return c.categories[c.codes[i]]
}

// String returns the string at row i and whether it is non-null.
func (c *CategoryColumn) String(i int) (string, bool) {
	if c.codes[i] < 0 {
		return "", false
	}
	return c.categories[c.codes[i]], true
}

// Categories returns the distinct values in order of first appearance.
func (c *CategoryColumn) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Int32Column holds nullable 32-bit integers.
type Int32Column struct {
	name   string
	values []int32
	valid  []bool
}

func (c *Int32Column) Name() string      { return c.name }
func (c *Int32Column) Type() Type        { return TypeInt32 }
func (c *Int32Column) Len() int          { return len(c.values) }
func (c *Int32Column) IsNull(i int) bool { return !c.valid[i] }

func (c *Int32Column) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	return c.values[i]
}

// Int32 returns the integer at row i and whether it is non-null.
func (c *Int32Column) Int32(i int) (int32, bool) {
	return c.values[i], c.valid[i]
}

// TimestampColumn holds nullable instants, always in UTC.
type TimestampColumn struct {
	name   string
	values []time.Time
	valid  []bool
}

func (c *TimestampColumn) Name() string      { return c.name }
func (c *TimestampColumn) Type() Type        { return TypeTimestamp }
func (c *TimestampColumn) Len() int          { return len(c.values) }
func (c *TimestampColumn) IsNull(i int) bool { return !c.valid[i] }

func (c *TimestampColumn) Value(i int) any {
	if !c.valid[i] {
		return nil
	}
	return c.values[i]
}

// Time returns the instant at row i and whether it is non-null.
func (c *TimestampColumn) Time(i int) (time.Time, bool) {
	return c.values[i], c.valid[i]
}
