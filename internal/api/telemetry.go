package api

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"wmsdash/internal/telemetry"
)

var (
	csvExports     metric.Int64Counter
	csvExportBytes metric.Int64Counter
)

func init() {
	meter := otel.Meter(telemetry.MeterName + "/api")

	var err error

	csvExports, err = meter.Int64Counter(
		"wmsdash.export.csv",
		metric.WithDescription("Number of CSV downloads served"),
	)
	if err != nil {
		log.Fatalf("failed to create export.csv counter: %v", err)
	}

	csvExportBytes, err = meter.Int64Counter(
		"wmsdash.export.csv.bytes",
		metric.WithUnit("By"),
		metric.WithDescription("Size of CSV downloads served"),
	)
	if err != nil {
		log.Fatalf("failed to create export.csv.bytes counter: %v", err)
	}
}

func recordExport(ctx context.Context, size int) {
	csvExports.Add(ctx, 1)
	csvExportBytes.Add(ctx, int64(size))
}
