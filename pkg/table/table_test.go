package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()

	names := NewStringBuilder("name", 3)
	names.Append("Alice")
	names.AppendNull()
	names.Append("Carol")

	cities := NewCategoryBuilder("city", 3)
	cities.Append("Paris")
	cities.Append("Paris")
	cities.AppendNull()

	sessions := NewInt32Builder("session_count", 3)
	sessions.Append(7)
	sessions.AppendNull()
	sessions.Append(-2)

	seen := NewTimestampBuilder("created_at", 3)
	seen.Append(time.Unix(1500000000, 0))
	seen.AppendNull()
	seen.Append(time.Unix(0, 500_000_000))

	tbl, err := New(names.Column(), cities.Column(), sessions.Column(), seen.Column())
	require.NoError(t, err)
	return tbl
}

func TestNew(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 4, tbl.NumColumns())
	assert.Equal(t, []string{"name", "city", "session_count", "created_at"}, tbl.ColumnNames())
	assert.Nil(t, tbl.Column("missing"))
	assert.Equal(t, TypeCategory, tbl.Column("city").Type())
}

func TestNew_EmptyTable(t *testing.T) {
	tbl, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestNew_LengthMismatch(t *testing.T) {
	a := NewStringBuilder("a", 1)
	a.Append("x")
	b := NewStringBuilder("b", 0)

	_, err := New(a.Column(), b.Column())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestNew_DuplicateColumn(t *testing.T) {
	a := NewStringBuilder("a", 0)
	b := NewStringBuilder("a", 0)

	_, err := New(a.Column(), b.Column())
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestCategoryColumn_InternsValues(t *testing.T) {
	b := NewCategoryBuilder("tags", 4)
	b.Append("vip")
	b.Append("")
	b.Append("vip")
	b.AppendNull()
	col := b.Column()

	assert.Equal(t, []string{"vip", ""}, col.Categories())
	assert.Equal(t, "vip", col.Value(2))
	assert.Equal(t, "", col.Value(1))
	assert.False(t, col.IsNull(1), "empty string is a value, not null")
	assert.True(t, col.IsNull(3))

	s, ok := col.String(0)
	assert.True(t, ok)
	assert.Equal(t, "vip", s)
}

func TestTimestampBuilder_StoresUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	b := NewTimestampBuilder("ts", 1)
	b.Append(time.Date(2020, 1, 1, 0, 0, 0, 0, loc))
	col := b.Column()

	got, ok := col.Time(0)
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 5, got.Hour())
}

func TestRow(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, []any{nil, "Paris", nil, nil}, tbl.Row(1))
	assert.Equal(t, "Alice", tbl.Row(0)[0])
	assert.Equal(t, int32(7), tbl.Row(0)[2])
}

func TestMarshalJSON_PreservesColumnOrder(t *testing.T) {
	tbl := sampleTable(t)

	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	want := `[` +
		`{"name":"Alice","city":"Paris","session_count":7,"created_at":"2017-07-14T02:40:00Z"},` +
		`{"name":null,"city":"Paris","session_count":null,"created_at":null},` +
		`{"name":"Carol","city":null,"session_count":-2,"created_at":"1970-01-01T00:00:00.5Z"}` +
		`]`
	assert.Equal(t, want, string(data))
}

func TestWriteCSV(t *testing.T) {
	tbl := sampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	want := "name,city,session_count,created_at\n" +
		"Alice,Paris,7,2017-07-14T02:40:00Z\n" +
		",Paris,,\n" +
		"Carol,,-2,1970-01-01T00:00:00.5Z\n"
	assert.Equal(t, want, buf.String())
}
