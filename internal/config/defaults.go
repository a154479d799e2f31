package config

func DefaultSyncEndpoints() []string {
	return []string{
		"/netsuite/locations",
		"/netsuite/users",
		"/netsuite/bins",
		"/netsuite/inventory",
		"/netsuite/items",
		"/netsuite/sales-orders",
	}
}

// DefaultDatasets are the warehouse datasets served by the WMS API.
func DefaultDatasets() []DatasetConfig {
	return []DatasetConfig{
		{Name: "locations", Title: "Locations", Endpoint: "/data_locations", Flatten: true},
		{Name: "bins", Title: "Bins", Endpoint: "/data_bins", Flatten: true},
		{Name: "users", Title: "Users", Endpoint: "/data_users", Flatten: true},
		{
			Name:      "inventory",
			Title:     "Inventory",
			Endpoint:  "/data_inventory",
			Shape:     "inventory",
			Breakouts: []string{"_details"},
			Flatten:   true,
			Columns: []ColumnConfig{
				{ID: "internal_id", Label: "Internal ID"},
				{ID: "item", Label: "Item"},
				{ID: "total_available", Label: "Total Available"},
				{ID: "_details", Label: "Details", Render: "breakout"},
			},
		},
		{
			Name:        "items",
			Title:       "Items",
			Endpoint:    "/data_items",
			KeyField:    "id",
			InitialSort: "id",
			Flatten:     true,
			Columns: []ColumnConfig{
				{ID: "id", Label: "ID"},
				{ID: "name", Label: "Name"},
				{ID: "upc_code", Label: "UPC Code"},
			},
		},
		{
			Name:      "sales_orders",
			Title:     "Sales Orders",
			Endpoint:  "/data_sales_orders",
			Breakouts: []string{"itemDetails"},
			Flatten:   true,
		},
		{
			Name:       "bin_count_records",
			Title:      "Bin Count Records",
			Endpoint:   "/bin-count-records",
			Breakouts:  []string{"bin_data", "bins_data", "itemData"},
			JSONFields: []string{"netsuite_response"},
			Flatten:    true,
		},
		{Name: "wms_ai_users", Title: "WMS AI Users", Endpoint: "/wms-ai-users", Flatten: true},
	}
}
