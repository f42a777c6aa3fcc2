package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestTable_Render(t *testing.T) {
	table := NewTable([]string{"YEAR", "TOTAL"})
	table.AddRow([]string{"2021", "2"})
	table.AddValues([]any{int64(2020), nil})

	var buf bytes.Buffer
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "YEAR  TOTAL", strings.TrimSpace(lines[0]))
	assert.Equal(t, "----  -----", strings.TrimSpace(lines[1]))
	assert.Equal(t, "2021  2", strings.TrimSpace(lines[2]))
	assert.Equal(t, "2020", strings.TrimSpace(lines[3]))
}

func TestRender_Formats(t *testing.T) {
	v := map[string]any{"year": 2021, "total": 2}
	table := func() *Table {
		tb := NewTable([]string{"year", "total"})
		tb.AddValues([]any{2021, 2})
		return tb
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, v, table))
	assert.JSONEq(t, `{"year":2021,"total":2}`, buf.String())

	buf.Reset()
	require.NoError(t, Render(&buf, FormatYAML, v, table))
	assert.Contains(t, buf.String(), "year: 2021")

	buf.Reset()
	require.NoError(t, Render(&buf, FormatTable, v, table))
	assert.Contains(t, buf.String(), "2021")

	assert.Error(t, Render(&buf, "xml", v, table))
}

func TestCell(t *testing.T) {
	at := time.Date(2024, 1, 1, 7, 10, 9, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{5.123456, "5.1235"},
		{2021.0, "2021"},
		{132.5, "132.5"},
		{int64(42), "42"},
		{"Japan", "Japan"},
		{at, "2024-01-01T07:10:09Z"},
		{&at, "2024-01-01T07:10:09Z"},
		{(*time.Time)(nil), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cell(tt.in))
	}
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, "loaded %d rows", 3)
	Warn(&buf, "%d windows failed", 1)
	Info(&buf, "run %s", "abc")
	Error(&buf, "boom")

	out := buf.String()
	assert.Contains(t, out, "✓ loaded 3 rows")
	assert.Contains(t, out, "⚠ 1 windows failed")
	assert.Contains(t, out, "run abc")
	assert.Contains(t, out, "✗ boom")
}
