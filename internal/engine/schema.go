package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default column width bounds, in pixels.
const (
	DefaultMinWidth = 200
	DefaultWidth    = 220
	DefaultMaxWidth = 1000
)

// RenderKind selects how a column's cells are presented.
type RenderKind int

const (
	RenderPlain RenderKind = iota
	// RenderBreakout opens the cell value as a nested drill-down table.
	RenderBreakout
	// RenderJSON opens the cell value as a raw JSON document.
	RenderJSON
)

func (k RenderKind) String() string {
	switch k {
	case RenderBreakout:
		return "breakout"
	case RenderJSON:
		return "json"
	}
	return "plain"
}

// ParseRenderKind is the inverse of String; unknown names are plain.
func ParseRenderKind(s string) RenderKind {
	switch strings.ToLower(s) {
	case "breakout":
		return RenderBreakout
	case "json":
		return RenderJSON
	}
	return RenderPlain
}

// ColumnDef describes one displayed column.
type ColumnDef struct {
	ID         string
	Label      string
	MinWidth   float64
	Width      float64
	MaxWidth   float64
	Sortable   bool
	Filterable bool
	Render     RenderKind
	// Target is the row field a Breakout or JSON cell opens. Defaults to ID.
	Target string
}

// TargetField is the field a button cell opens.
func (c ColumnDef) TargetField() string {
	if c.Target != "" {
		return c.Target
	}
	return c.ID
}

// Clamp bounds w to the column's [MinWidth, MaxWidth].
func (c ColumnDef) Clamp(w float64) float64 {
	if c.MaxWidth > 0 && w > c.MaxWidth {
		w = c.MaxWidth
	}
	if w < c.MinWidth {
		w = c.MinWidth
	}
	return w
}

// Inferencer derives column definitions from rows.
type Inferencer struct {
	// Breakouts and JSONFields mark columns rendered as buttons.
	Breakouts  KeySet
	JSONFields KeySet
	Separator  string
}

// InferColumns is Inferencer{}.Infer.
func InferColumns(rows []*Object, explicit []ColumnDef) []ColumnDef {
	return Inferencer{}.Infer(rows, explicit)
}

// Infer returns explicit unchanged when it is non-empty. Otherwise it derives
// one column per key of the first row, in that row's key order. Keys that
// only appear in later rows are not represented.
func (in Inferencer) Infer(rows []*Object, explicit []ColumnDef) []ColumnDef {
	if len(explicit) > 0 {
		return explicit
	}
	if len(rows) == 0 || rows[0] == nil {
		return []ColumnDef{}
	}
	sep := in.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	first := rows[0]
	cols := make([]ColumnDef, 0, first.Len())
	for _, key := range first.Keys() {
		col := ColumnDef{
			ID:         key,
			Label:      HeaderLabel(key),
			MinWidth:   DefaultMinWidth,
			Width:      DefaultWidth,
			MaxWidth:   DefaultMaxWidth,
			Sortable:   true,
			Filterable: true,
		}
		switch {
		case in.JSONFields.Match(key, sep):
			col.Render = RenderJSON
		case in.Breakouts.Match(key, sep):
			col.Render = RenderBreakout
		}
		cols = append(cols, col)
	}
	return cols
}

// HeaderLabel turns "sales_order_id" into "Sales Order Id". Only the first
// letter of each segment changes case.
func HeaderLabel(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		if size == 0 {
			continue
		}
		parts[i] = string(unicode.ToUpper(r)) + p[size:]
	}
	return strings.Join(parts, " ")
}
