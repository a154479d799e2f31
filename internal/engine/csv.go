package engine

import (
	"errors"
	"regexp"
	"strings"
)

const (
	CSVMimeType       = "text/csv"
	DefaultExportName = "table_data"
)

// ErrNoRows is returned when an export has nothing to write.
var ErrNoRows = errors.New("no rows to export")

// Download is a file offered to the user.
type Download struct {
	Filename string
	MimeType string
	Content  string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename is the title with whitespace runs replaced by "_",
// lower-cased, plus ".csv".
func ExportFilename(title string) string {
	if title == "" {
		return DefaultExportName + ".csv"
	}
	return strings.ToLower(whitespaceRun.ReplaceAllString(title, "_")) + ".csv"
}

// ExportCSV serializes rows under a header of column labels. Rows are
// joined with "\n" and there is no trailing newline. Strings and raw
// containers are quoted with embedded quotes doubled; numbers and booleans
// are written bare; null is empty.
func ExportCSV(rows []*Object, columns []ColumnDef, title string) (Download, error) {
	if len(rows) == 0 {
		return Download{}, ErrNoRows
	}

	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.Label)
	}
	for _, row := range rows {
		b.WriteByte('\n')
		for i, c := range columns {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(csvField(row.Get(c.ID)))
		}
	}

	return Download{
		Filename: ExportFilename(title),
		MimeType: CSVMimeType,
		Content:  b.String(),
	}, nil
}

func csvField(v Value) string {
	switch v.Kind() {
	case KindNull:
		return ""
	case KindBool, KindNumber:
		return v.Text()
	case KindString, KindArray, KindObject:
		return quoteCSV(v.Text())
	}
	return ""
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
