package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSVQuoting(t *testing.T) {
	rows := rowsOf(t, `[{"id": 1, "note": "he said \"hi\", ok", "ok": true, "gone": null, "raw": {"a": [1]}}]`)
	cols := InferColumns(rows, nil)

	d, err := ExportCSV(rows, cols, "")
	require.NoError(t, err)

	assert.Equal(t, "Id,Note,Ok,Gone,Raw\n"+`1,"he said ""hi"", ok",true,,"{""a"":[1]}"`, d.Content)
	assert.Equal(t, "table_data.csv", d.Filename)
	assert.Equal(t, "text/csv", d.MimeType)
}

func TestExportCSVHeaderUsesLabels(t *testing.T) {
	rows := rowsOf(t, `[{"sales_order": "SO1"}, {"sales_order": "SO2"}]`)
	d, err := ExportCSV(rows, InferColumns(rows, nil), "Sales Orders")
	require.NoError(t, err)
	assert.Equal(t, "Sales Order\n\"SO1\"\n\"SO2\"", d.Content)
	assert.Equal(t, "sales_orders.csv", d.Filename)
}

func TestExportCSVNoRows(t *testing.T) {
	_, err := ExportCSV(nil, []ColumnDef{{ID: "a", Label: "A"}}, "x")
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "bin_count_records.csv", ExportFilename("Bin Count  Records"))
	assert.Equal(t, "item_details.csv", ExportFilename("Item\tDetails"))
	assert.Equal(t, "table_data.csv", ExportFilename(""))
}

func TestTableExportIgnoresPagination(t *testing.T) {
	tbl := NewTable("Rows", nil, TableOptions{})
	tbl.Reload(func() []Value {
		out := []Value{}
		for _, r := range numberedRows(12) {
			out = append(out, ObjectOf(r))
		}
		return out
	}())
	require.NoError(t, tbl.ToggleSort("id"))
	require.NoError(t, tbl.ToggleSort("id")) // descending
	tbl.SetPageIndex(1)

	d, err := tbl.Export()
	require.NoError(t, err)
	lines := splitLines(d.Content)
	assert.Len(t, lines, 13)
	assert.Equal(t, `11,"row 11"`, lines[1])
	assert.Equal(t, `0,"row 0"`, lines[12])
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
