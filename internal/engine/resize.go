package engine

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// AutoFitPadding is added to the widest measured cell on auto-fit.
const AutoFitPadding = 24

// CellPixels approximates the pixel width of one monospace cell.
const CellPixels = 8

// Measurer returns the rendered width of a cell's text.
type Measurer interface {
	Measure(text string) float64
}

// RuneWidthMeasurer measures terminal cells (wide runes count twice) and
// scales them by PixelsPerCell.
type RuneWidthMeasurer struct {
	PixelsPerCell float64
}

func (m RuneWidthMeasurer) Measure(text string) float64 {
	px := m.PixelsPerCell
	if px <= 0 {
		px = CellPixels
	}
	return float64(runewidth.StringWidth(text)) * px
}

// ColumnWidth is the current width of a column: the resized width when one
// was set, otherwise the column's preferred width.
func (p *Pipeline) ColumnWidth(id string) float64 {
	if w, ok := p.state.ColumnWidths[id]; ok {
		return w
	}
	col, _ := p.Column(id)
	return col.Clamp(col.Width)
}

// ResizeColumn sets a column width clamped to its bounds and returns the
// width that was applied.
func (p *Pipeline) ResizeColumn(id string, width float64) (float64, error) {
	col, ok := p.Column(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	w := col.Clamp(width)
	p.state.ColumnWidths[id] = w
	return w, nil
}

// AutoFitColumn sizes a column to its widest cell on the current page plus
// AutoFitPadding. Rows on other pages are not measured.
func (p *Pipeline) AutoFitColumn(id string, m Measurer) (float64, error) {
	col, ok := p.Column(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	if m == nil {
		m = RuneWidthMeasurer{}
	}

	var widest float64
	for _, row := range p.Page().Rows {
		widest = max(widest, m.Measure(CellText(col, row)))
	}
	return p.ResizeColumn(id, widest+AutoFitPadding)
}

// CellText is the text a cell displays. Button columns show a label instead
// of their raw value.
func CellText(col ColumnDef, row *Object) string {
	switch col.Render {
	case RenderBreakout, RenderJSON:
		v := row.Get(col.TargetField())
		if v.IsNull() || (!v.IsScalar() && v.Len() == 0) {
			return "No Data"
		}
		return "View " + col.Label
	}
	return row.Get(col.ID).Text()
}
