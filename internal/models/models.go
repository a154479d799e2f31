package models

// DashboardData is the landing page summary.
type DashboardData struct {
	Cards []DatasetCard `json:"cards"`
}

type DatasetCard struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type DatasetInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Endpoint string `json:"endpoint"`
	Shape    string `json:"shape"`
}

type Column struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Width      float64 `json:"width"`
	MinWidth   float64 `json:"min_width"`
	MaxWidth   float64 `json:"max_width"`
	Sortable   bool    `json:"sortable"`
	Filterable bool    `json:"filterable"`
	Render     string  `json:"render"`
	Target     string  `json:"target,omitempty"`
}

type ViewState struct {
	GlobalFilter  string             `json:"global_filter"`
	ColumnFilters map[string]string  `json:"column_filters"`
	SortColumn    string             `json:"sort_column,omitempty"`
	SortDirection string             `json:"sort_direction,omitempty"`
	PageIndex     int                `json:"page_index"`
	PageSize      int                `json:"page_size"`
	ColumnWidths  map[string]float64 `json:"column_widths"`
}

// Cell carries both the displayed text and the raw value of a cell.
type Cell struct {
	Text  string `json:"text"`
	Value any    `json:"value"`
}

// TablePage is one rendered page of a table or drill-down.
type TablePage struct {
	ID              string          `json:"id"`
	DrillDown       int             `json:"drilldown,omitempty"`
	Title           string          `json:"title"`
	Loading         bool            `json:"loading"`
	Error           string          `json:"error,omitempty"`
	Placeholder     string          `json:"placeholder,omitempty"`
	Columns         []Column        `json:"columns"`
	Rows            [][]Cell        `json:"rows"`
	TotalFiltered   int             `json:"total_filtered"`
	PageCount       int             `json:"page_count"`
	PageSizeOptions []int           `json:"page_size_options"`
	State           ViewState       `json:"state"`
	DrillDowns      []DrillDownInfo `json:"drilldowns,omitempty"`
}

type DrillDownInfo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Field string `json:"field"`
}

// StatePatch updates any subset of a view state.
type StatePatch struct {
	GlobalFilter  *string           `json:"global_filter"`
	ColumnFilters map[string]string `json:"column_filters"`
	PageIndex     *int              `json:"page_index"`
	PageSize      *int              `json:"page_size"`
}

type OpenTableRequest struct {
	Dataset string `json:"dataset"`
}

type OpenDrillDownRequest struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Title  string `json:"title"`
}

type WidthRequest struct {
	Width float64 `json:"width"`
}

type WidthResponse struct {
	Column string  `json:"column"`
	Width  float64 `json:"width"`
}

// Event is a websocket message in either direction.
type Event struct {
	Type    string `json:"type"`
	Dataset string `json:"dataset,omitempty"`
	Error   string `json:"error,omitempty"`
}
