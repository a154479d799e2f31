package engine

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNotSortable     = errors.New("column is not sortable")
	ErrNotFilterable   = errors.New("column is not filterable")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// PageSizeOptions are the page sizes a view may use.
var PageSizeOptions = []int{5, 10, 25, 50}

const DefaultPageSize = 10

type SortDirection int

const (
	SortNone SortDirection = iota
	SortAscending
	SortDescending
)

func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	}
	return ""
}

// ViewState is the filter, sort, paging and width state of one table
// instance.
type ViewState struct {
	GlobalFilter  string
	ColumnFilters map[string]string
	SortColumn    string
	SortDirection SortDirection
	PageIndex     int
	PageSize      int
	ColumnWidths  map[string]float64
}

func DefaultViewState() ViewState {
	return ViewState{
		ColumnFilters: map[string]string{},
		PageSize:      DefaultPageSize,
		ColumnWidths:  map[string]float64{},
	}
}

func (s ViewState) clone() ViewState {
	c := s
	c.ColumnFilters = maps.Clone(s.ColumnFilters)
	c.ColumnWidths = maps.Clone(s.ColumnWidths)
	return c
}

// Page is one page of the filtered and sorted rows.
type Page struct {
	Rows          []*Object
	TotalFiltered int
	PageIndex     int
	PageSize      int
	PageCount     int
}

// Pipeline runs filter → sort → paginate over flattened rows. Results are
// recomputed from the current rows and state on every read.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	columns []ColumnDef
	byID    map[string]int
	rows    []*Object
	state   ViewState
	fold    cases.Caser
}

func NewPipeline(rows []*Object, columns []ColumnDef) *Pipeline {
	p := &Pipeline{
		rows:  rows,
		state: DefaultViewState(),
		fold:  cases.Fold(),
	}
	p.setColumns(columns)
	return p
}

func (p *Pipeline) setColumns(columns []ColumnDef) {
	p.columns = columns
	p.byID = make(map[string]int, len(columns))
	for i, c := range columns {
		p.byID[c.ID] = i
	}
}

func (p *Pipeline) Columns() []ColumnDef { return p.columns }

func (p *Pipeline) Column(id string) (ColumnDef, bool) {
	i, ok := p.byID[id]
	if !ok {
		return ColumnDef{}, false
	}
	return p.columns[i], true
}

func (p *Pipeline) Rows() []*Object { return p.rows }

// State returns a copy of the current view state.
func (p *Pipeline) State() ViewState { return p.state.clone() }

// SetRows replaces the row set (e.g. after a refresh) and keeps the view
// state, clamping the page index.
func (p *Pipeline) SetRows(rows []*Object, columns []ColumnDef) {
	p.rows = rows
	p.setColumns(columns)
	p.clampPage()
}

func (p *Pipeline) SetGlobalFilter(text string) {
	p.state.GlobalFilter = text
	p.state.PageIndex = 0
}

// SetColumnFilter sets the filter text of one column. Empty text removes it.
func (p *Pipeline) SetColumnFilter(id, text string) error {
	col, ok := p.Column(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	if !col.Filterable {
		return fmt.Errorf("%w: %s", ErrNotFilterable, id)
	}
	if text == "" {
		delete(p.state.ColumnFilters, id)
	} else {
		p.state.ColumnFilters[id] = text
	}
	p.state.PageIndex = 0
	return nil
}

// ToggleSort cycles the sort of a column: none → asc → desc → none. A
// different column replaces the active one and starts ascending.
func (p *Pipeline) ToggleSort(id string) error {
	col, ok := p.Column(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	if !col.Sortable {
		return fmt.Errorf("%w: %s", ErrNotSortable, id)
	}

	if p.state.SortColumn != id {
		p.state.SortColumn = id
		p.state.SortDirection = SortAscending
		return nil
	}
	switch p.state.SortDirection {
	case SortNone:
		p.state.SortDirection = SortAscending
	case SortAscending:
		p.state.SortDirection = SortDescending
	default:
		p.state.SortColumn = ""
		p.state.SortDirection = SortNone
	}
	return nil
}

func (p *Pipeline) SetPageIndex(i int) {
	p.state.PageIndex = i
	p.clampPage()
}

// SetPageSize switches to one of PageSizeOptions, keeping the first row of
// the current page visible.
func (p *Pipeline) SetPageSize(size int) error {
	if !slices.Contains(PageSizeOptions, size) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	top := p.state.PageIndex * p.state.PageSize
	p.state.PageSize = size
	p.state.PageIndex = top / size
	p.clampPage()
	return nil
}

func (p *Pipeline) clampPage() {
	count := pageCount(len(p.Filtered()), p.state.PageSize)
	if p.state.PageIndex >= count {
		p.state.PageIndex = count - 1
	}
	if p.state.PageIndex < 0 {
		p.state.PageIndex = 0
	}
}

func pageCount(n, size int) int {
	if size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// PageCount is ceil(filtered rows / page size).
func (p *Pipeline) PageCount() int {
	return pageCount(len(p.Filtered()), p.state.PageSize)
}

// Filtered returns every row passing the filters, in sorted order, ignoring
// pagination.
func (p *Pipeline) Filtered() []*Object {
	out := make([]*Object, 0, len(p.rows))
	for _, r := range p.rows {
		if p.matches(r) {
			out = append(out, r)
		}
	}

	col := p.state.SortColumn
	dir := p.state.SortDirection
	if col == "" || dir == SortNone {
		return out
	}
	slices.SortStableFunc(out, func(a, b *Object) int {
		c := p.compare(a.Get(col), b.Get(col))
		if dir == SortDescending {
			return -c
		}
		return c
	})
	return out
}

// Page returns the rows of the current page.
func (p *Pipeline) Page() Page {
	filtered := p.Filtered()
	size := p.state.PageSize
	count := pageCount(len(filtered), size)

	idx := p.state.PageIndex
	if idx >= count {
		idx = count - 1
	}
	if idx < 0 {
		idx = 0
	}

	start := min(idx*size, len(filtered))
	end := min(start+size, len(filtered))
	return Page{
		Rows:          filtered[start:end],
		TotalFiltered: len(filtered),
		PageIndex:     idx,
		PageSize:      size,
		PageCount:     count,
	}
}

func (p *Pipeline) matches(row *Object) bool {
	for id, text := range p.state.ColumnFilters {
		if !p.contains(row.Get(id).Text(), text) {
			return false
		}
	}
	if g := p.state.GlobalFilter; g != "" {
		for _, c := range p.columns {
			if p.contains(row.Get(c.ID).Text(), g) {
				return true
			}
		}
		return false
	}
	return true
}

func (p *Pipeline) contains(s, sub string) bool {
	return strings.Contains(p.fold.String(s), p.fold.String(sub))
}

// compare orders numerically when both sides parse as numbers, otherwise
// as case-folded strings. Null is the empty string.
func (p *Pipeline) compare(a, b Value) int {
	if af, ok := numericValue(a); ok {
		if bf, ok := numericValue(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	return strings.Compare(p.fold.String(a.Text()), p.fold.String(b.Text()))
}

// numericValue reads numbers and numeric strings. Non-finite results such
// as "NaN" or "Inf" are not numbers.
func numericValue(v Value) (float64, bool) {
	var f float64
	switch v.Kind() {
	case KindNumber:
		var ok bool
		if f, ok = v.Float(); !ok {
			return 0, false
		}
	case KindString:
		s, _ := v.Str()
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
