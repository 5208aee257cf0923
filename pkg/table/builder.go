package table

import "time"

// StringBuilder accumulates a StringColumn.
type StringBuilder struct {
	col *StringColumn
}

// NewStringBuilder returns a builder sized for capacity rows.
func NewStringBuilder(name string, capacity int) *StringBuilder {
	return &StringBuilder{col: &StringColumn{
		name:   name,
		values: make([]string, 0, capacity),
		valid:  make([]bool, 0, capacity),
	}}
}

func (b *StringBuilder) Append(s string) {
	b.col.values = append(b.col.values, s)
	b.col.valid = append(b.col.valid, true)
}

func (b *StringBuilder) AppendNull() {
	b.col.values = append(b.col.values, "")
	b.col.valid = append(b.col.valid, false)
}

// Column finishes the column. The builder must not be used afterwards.
func (b *StringBuilder) Column() *StringColumn {
	col := b.col
	b.col = nil
	return col
}

// CategoryBuilder accumulates a CategoryColumn, interning repeated values.
type CategoryBuilder struct {
	col   *CategoryColumn
	index map[string]int32
}

// NewCategoryBuilder returns a builder sized for capacity rows.
func NewCategoryBuilder(name string, capacity int) *CategoryBuilder {
	return &CategoryBuilder{
		col: &CategoryColumn{
			name:  name,
			codes: make([]int32, 0, capacity),
		},
		index: make(map[string]int32),
	}
}

func (b *CategoryBuilder) Append(s string) {
	code, ok := b.index[s]
	if !ok {
		code = int32(len(b.col.categories))
		b.col.categories = append(b.col.categories, s)
		b.index[s] = code
	}
	b.col.codes = append(b.col.codes, code)
}

func (b *CategoryBuilder) AppendNull() {
	b.col.codes = append(b.col.codes, -1)
}

// Column finishes the column. The builder must not be used afterwards.
func (b *CategoryBuilder) Column() *CategoryColumn {
	col := b.col
	b.col = nil
	b.index = nil
	return col
}

// Int32Builder accumulates an Int32Column.
type Int32Builder struct {
	col *Int32Column
}

// NewInt32Builder returns a builder sized for capacity rows.
func NewInt32Builder(name string, capacity int) *Int32Builder {
	return &Int32Builder{col: &Int32Column{
		name:   name,
		values: make([]int32, 0, capacity),
		valid:  make([]bool, 0, capacity),
	}}
}

func (b *Int32Builder) Append(v int32) {
	b.col.values = append(b.col.values, v)
	b.col.valid = append(b.col.valid, true)
}

func (b *Int32Builder) AppendNull() {
	b.col.values = append(b.col.values, 0)
	b.col.valid = append(b.col.valid, false)
}

// Column finishes the column. The builder must not be used afterwards.
func (b *Int32Builder) Column() *Int32Column {
	col := b.col
	b.col = nil
	return col
}

// TimestampBuilder accumulates a TimestampColumn.
type TimestampBuilder struct {
	col *TimestampColumn
}

// NewTimestampBuilder returns a builder sized for capacity rows.
func NewTimestampBuilder(name string, capacity int) *TimestampBuilder {
	return &TimestampBuilder{col: &TimestampColumn{
		name:   name,
		values: make([]time.Time, 0, capacity),
		valid:  make([]bool, 0, capacity),
	}}
}

// Append stores t converted to UTC.
func (b *TimestampBuilder) Append(t time.Time) {
	b.col.values = append(b.col.values, t.UTC())
	b.col.valid = append(b.col.valid, true)
}

func (b *TimestampBuilder) AppendNull() {
	b.col.values = append(b.col.values, time.Time{})
	b.col.valid = append(b.col.valid, false)
}

// Column finishes the column. The builder must not be used afterwards.
func (b *TimestampBuilder) Column() *TimestampColumn {
	col := b.col
	b.col = nil
	return col
}
