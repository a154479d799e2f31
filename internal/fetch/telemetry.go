package fetch

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"wmsdash/internal/telemetry"
)

var (
	fetches       metric.Int64Counter
	fetchDuration metric.Float64Histogram
	cacheHits     metric.Int64Counter
	dedups        metric.Int64Counter
	discarded     metric.Int64Counter
)

func init() {
	meter := otel.Meter(telemetry.MeterName + "/fetch")

	var err error

	fetches, err = meter.Int64Counter(
		"wmsdash.upstream.fetches",
		metric.WithDescription("Number of upstream dataset fetches"),
	)
	if err != nil {
		log.Fatalf("failed to create upstream.fetches counter: %v", err)
	}

	fetchDuration, err = meter.Float64Histogram(
		"wmsdash.upstream.fetch.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of upstream dataset fetches"),
	)
	if err != nil {
		log.Fatalf("failed to create upstream.fetch.duration histogram: %v", err)
	}

	cacheHits, err = meter.Int64Counter(
		"wmsdash.upstream.cache_hits",
		metric.WithDescription("Number of dataset reads served from the freshness cache"),
	)
	if err != nil {
		log.Fatalf("failed to create upstream.cache_hits counter: %v", err)
	}

	dedups, err = meter.Int64Counter(
		"wmsdash.upstream.deduplicated",
		metric.WithDescription("Number of dataset requests that joined an in-flight fetch"),
	)
	if err != nil {
		log.Fatalf("failed to create upstream.deduplicated counter: %v", err)
	}

	discarded, err = meter.Int64Counter(
		"wmsdash.upstream.discarded",
		metric.WithDescription("Number of responses discarded because a newer request superseded them"),
	)
	if err != nil {
		log.Fatalf("failed to create upstream.discarded counter: %v", err)
	}
}

func recordFetch(ctx context.Context, dataset string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.Bool("success", err == nil),
	)
	fetches.Add(ctx, 1, attrs)
	fetchDuration.Record(ctx, d.Seconds(), attrs)
}
