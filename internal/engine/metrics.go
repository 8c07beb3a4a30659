package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("impactanalyzer.engine")
	meter  = otel.Meter("impactanalyzer.engine")
)

var (
	rebuildLatency metric.Float64Histogram
	rebuildTotal   metric.Int64Counter
	queryLatency   metric.Float64Histogram
	cacheHits      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		rebuildLatency, err = meter.Float64Histogram(
			"impact_graph_rebuild_duration_seconds",
			metric.WithDescription("Duration of full graph rebuilds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rebuildTotal, err = meter.Int64Counter(
			"impact_graph_rebuild_total",
			metric.WithDescription("Total number of graph rebuilds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryLatency, err = meter.Float64Histogram(
			"impact_query_duration_seconds",
			metric.WithDescription("Duration of impact queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheHits, err = meter.Int64Counter(
			"impact_query_cache_hits_total",
			metric.WithDescription("Impact queries answered from the response cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordRebuildMetrics(ctx context.Context, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	rebuildLatency.Record(ctx, duration.Seconds(), attrs)
	rebuildTotal.Add(ctx, 1, attrs)
}

func recordQueryMetrics(ctx context.Context, duration time.Duration, cached bool) {
	if err := initMetrics(); err != nil {
		return
	}
	queryLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("cached", cached)),
	)
	if cached {
		cacheHits.Add(ctx, 1)
	}
}

func startRebuildSpan(ctx context.Context, factsPath, dbPath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Rebuild",
		trace.WithAttributes(
			attribute.String("facts.path", factsPath),
			attribute.String("facts.db_path", dbPath),
		),
	)
}

func startQuerySpan(ctx context.Context, seedCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Impact",
		trace.WithAttributes(
			attribute.Int("impact.seed_count", seedCount),
		),
	)
}
