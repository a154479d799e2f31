package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wmsdash",
	Short: "Warehouse dashboard backend",
	Long:  `Serves the WMS datasets as filterable, sortable, paginated tables with drill-downs and CSV export.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
