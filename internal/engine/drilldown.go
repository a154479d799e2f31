package engine

import (
	"errors"
	"fmt"

	"github.com/google/btree"
)

var ErrContextNotFound = errors.New("drill-down context not found")

// DrillDown is one open nested table. Each has its own view state; closing
// it discards that state.
type DrillDown struct {
	ID    int
	Field string
	*Table
}

// Navigator tracks the drill-down contexts open on a table. Contexts are
// independent of each other and of their parent, and any context row may
// open a further one.
type Navigator struct {
	opts   TableOptions
	nextID int
	open   *btree.BTreeG[*DrillDown]
}

func drillDownOrder(a, b *DrillDown) bool { return a.ID < b.ID }

// NewNavigator creates a navigator whose contexts flatten with the given
// breakout, JSON-field and separator settings. Explicit columns and the
// Flatten flag of opts are ignored, and contexts start unsorted.
func NewNavigator(opts TableOptions) *Navigator {
	opts.Columns = nil
	opts.InitialSort = ""
	opts.Flatten = true
	return &Navigator{
		opts: opts,
		open: btree.NewG(2, drillDownOrder),
	}
}

// DrillDownRecords turns a raw cell value into table records: an array's
// elements, an object as a single row, anything else as no rows.
func DrillDownRecords(raw Value) []Value {
	switch raw.Kind() {
	case KindArray:
		return raw.Elems()
	case KindObject:
		return []Value{raw}
	}
	return []Value{}
}

// Open starts a new context over raw with a fresh default view state.
func (n *Navigator) Open(field string, raw Value, title string) *DrillDown {
	n.nextID++
	dd := &DrillDown{
		ID:    n.nextID,
		Field: field,
		Table: NewTable(title, DrillDownRecords(raw), n.opts),
	}
	n.open.ReplaceOrInsert(dd)
	return dd
}

// OpenCell opens the value behind a cell of t's current page. An empty
// title defaults to "<Label> Details".
func (n *Navigator) OpenCell(t *Table, pageRow int, column, title string) (*DrillDown, error) {
	col, raw, err := t.Cell(pageRow, column)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = col.Label + " Details"
	}
	return n.Open(col.TargetField(), raw, title), nil
}

func (n *Navigator) Get(id int) (*DrillDown, error) {
	dd, ok := n.open.Get(&DrillDown{ID: id})
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrContextNotFound, id)
	}
	return dd, nil
}

// Close discards a context and its view state.
func (n *Navigator) Close(id int) error {
	if _, ok := n.open.Delete(&DrillDown{ID: id}); !ok {
		return fmt.Errorf("%w: %d", ErrContextNotFound, id)
	}
	return nil
}

func (n *Navigator) Len() int { return n.open.Len() }

// Contexts lists the open contexts in the order they were opened.
func (n *Navigator) Contexts() []*DrillDown {
	out := make([]*DrillDown, 0, n.open.Len())
	n.open.Ascend(func(dd *DrillDown) bool {
		out = append(out, dd)
		return true
	})
	return out
}
