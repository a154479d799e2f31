package engine

import (
	"errors"
	"fmt"
)

var ErrRowOutOfRange = errors.New("row is not on the current page")

// TableOptions controls how raw records become table rows.
type TableOptions struct {
	// Breakouts are kept raw and open as nested tables.
	Breakouts KeySet
	// JSONFields are kept raw and open as JSON documents.
	JSONFields KeySet
	Separator  string
	// Flatten projects nested records into joined keys. Without it records
	// are bound as they are.
	Flatten bool
	// Columns, when non-empty, replace inference.
	Columns []ColumnDef
	// InitialSort names a column a new table starts sorted ascending by.
	InitialSort string
}

func (o TableOptions) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

// Table binds source records to a pipeline with its own view state.
type Table struct {
	*Pipeline

	Title  string
	opts   TableOptions
	source []Value
}

func NewTable(title string, records []Value, opts TableOptions) *Table {
	t := &Table{Title: title, opts: opts}
	rows, cols := t.project(records)
	t.source = records
	t.Pipeline = NewPipeline(rows, cols)
	if opts.InitialSort != "" {
		t.state.SortColumn = opts.InitialSort
		t.state.SortDirection = SortAscending
	}
	return t
}

func (t *Table) project(records []Value) ([]*Object, []ColumnDef) {
	var rows []*Object
	if t.opts.Flatten {
		raw := t.opts.Breakouts.Union(t.opts.JSONFields)
		rows = FlattenAll(records, raw, t.opts.separator())
	} else {
		rows = make([]*Object, 0, len(records))
		for _, r := range records {
			if o := r.Obj(); o != nil {
				rows = append(rows, o)
			} else {
				rows = append(rows, NewObject())
			}
		}
	}

	in := Inferencer{
		Breakouts:  t.opts.Breakouts,
		JSONFields: t.opts.JSONFields,
		Separator:  t.opts.separator(),
	}
	return rows, in.Infer(rows, t.opts.Columns)
}

// Reload swaps in freshly fetched records, keeping the view state.
func (t *Table) Reload(records []Value) {
	rows, cols := t.project(records)
	t.source = records
	t.Pipeline.SetRows(rows, cols)
}

func (t *Table) Source() []Value { return t.source }

func (t *Table) Options() TableOptions { return t.opts }

// Cell returns the raw value a cell on the current page refers to. Button
// columns resolve to their target field.
func (t *Table) Cell(pageRow int, column string) (ColumnDef, Value, error) {
	col, ok := t.Column(column)
	if !ok {
		return ColumnDef{}, Value{}, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	rows := t.Page().Rows
	if pageRow < 0 || pageRow >= len(rows) {
		return ColumnDef{}, Value{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, pageRow)
	}
	field := column
	if col.Render != RenderPlain {
		field = col.TargetField()
	}
	return col, rows[pageRow].Get(field), nil
}

// Export serializes the full filtered and sorted rows as CSV.
func (t *Table) Export() (Download, error) {
	return ExportCSV(t.Filtered(), t.Columns(), t.Title)
}
