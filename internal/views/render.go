package views

import (
	"fmt"
	"slices"

	"wmsdash/internal/engine"
	"wmsdash/internal/models"
)

// Placeholder is shown in place of rows when a loaded table has none.
const Placeholder = "No data available"

// Render builds the current page of a target.
func Render(t Target) models.TablePage {
	tbl := t.Table
	page := tbl.Page()
	cols := tbl.Columns()

	out := models.TablePage{
		ID:              t.Instance.ID,
		Title:           tbl.Title,
		Columns:         make([]models.Column, 0, len(cols)),
		Rows:            make([][]models.Cell, 0, len(page.Rows)),
		TotalFiltered:   page.TotalFiltered,
		PageCount:       page.PageCount,
		PageSizeOptions: slices.Clone(engine.PageSizeOptions),
		State:           renderState(tbl.State()),
	}
	out.State.PageIndex = page.PageIndex

	if t.DrillDown != nil {
		out.DrillDown = t.DrillDown.ID
	} else {
		out.Loading = t.Instance.loading
		out.Error = t.Instance.err
		for _, dd := range t.Instance.nav.Contexts() {
			out.DrillDowns = append(out.DrillDowns, models.DrillDownInfo{
				ID:    dd.ID,
				Title: dd.Title,
				Field: dd.Field,
			})
		}
	}

	for _, c := range cols {
		out.Columns = append(out.Columns, models.Column{
			ID:         c.ID,
			Label:      c.Label,
			Width:      tbl.ColumnWidth(c.ID),
			MinWidth:   c.MinWidth,
			MaxWidth:   c.MaxWidth,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Render:     c.Render.String(),
			Target:     c.Target,
		})
	}

	for _, row := range page.Rows {
		cells := make([]models.Cell, 0, len(cols))
		for _, c := range cols {
			cells = append(cells, models.Cell{
				Text:  engine.CellText(c, row),
				Value: row.Get(c.TargetField()),
			})
		}
		out.Rows = append(out.Rows, cells)
	}

	if len(page.Rows) == 0 && !out.Loading {
		out.Placeholder = Placeholder
	}
	return out
}

func renderState(s engine.ViewState) models.ViewState {
	return models.ViewState{
		GlobalFilter:  s.GlobalFilter,
		ColumnFilters: s.ColumnFilters,
		SortColumn:    s.SortColumn,
		SortDirection: s.SortDirection.String(),
		PageIndex:     s.PageIndex,
		PageSize:      s.PageSize,
		ColumnWidths:  s.ColumnWidths,
	}
}

// Apply updates the view state of a table. The whole patch is checked
// first, so a rejected patch leaves the state as it was. Filters apply
// before paging, so a patch that changes a filter and a page index lands on
// that page of the new filtered rows.
func Apply(tbl *engine.Table, p models.StatePatch) error {
	if err := check(tbl, p); err != nil {
		return err
	}

	for id, text := range p.ColumnFilters {
		if err := tbl.SetColumnFilter(id, text); err != nil {
			return err
		}
	}
	if p.GlobalFilter != nil {
		tbl.SetGlobalFilter(*p.GlobalFilter)
	}
	if p.PageSize != nil {
		if err := tbl.SetPageSize(*p.PageSize); err != nil {
			return err
		}
	}
	if p.PageIndex != nil {
		tbl.SetPageIndex(*p.PageIndex)
	}
	return nil
}

func check(tbl *engine.Table, p models.StatePatch) error {
	for id := range p.ColumnFilters {
		col, ok := tbl.Column(id)
		if !ok {
			return fmt.Errorf("%w: %s", engine.ErrUnknownColumn, id)
		}
		if !col.Filterable {
			return fmt.Errorf("%w: %s", engine.ErrNotFilterable, id)
		}
	}
	if p.PageSize != nil && !slices.Contains(engine.PageSizeOptions, *p.PageSize) {
		return fmt.Errorf("%w: %d", engine.ErrInvalidPageSize, *p.PageSize)
	}
	return nil
}
