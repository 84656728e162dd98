// Package observe provides observability primitives for GuruVoice:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all GuruVoice metrics.
const meterName = "github.com/eklavya-ai/guruvoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks per-chunk speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// ChunksFetched counts synthesis fetches. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ChunksFetched metric.Int64Counter

	// ChunksSkipped counts chunks dropped after a failed fetch.
	ChunksSkipped metric.Int64Counter

	// ChunksPlayed counts chunks handed to the output device.
	ChunksPlayed metric.Int64Counter

	// LiveEvents counts live session server events. Use with attribute:
	//   attribute.String("kind", ...)
	LiveEvents metric.Int64Counter

	// ActiveSessions tracks the number of open live sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synthesis round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("guruvoice.synthesis.duration",
		metric.WithDescription("Latency of per-chunk speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunksFetched, err = m.Int64Counter("guruvoice.chunks.fetched",
		metric.WithDescription("Total synthesis fetches by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ChunksSkipped, err = m.Int64Counter("guruvoice.chunks.skipped",
		metric.WithDescription("Total chunks dropped after a failed fetch."),
	); err != nil {
		return nil, err
	}
	if met.ChunksPlayed, err = m.Int64Counter("guruvoice.chunks.played",
		metric.WithDescription("Total chunks handed to the output device."),
	); err != nil {
		return nil, err
	}
	if met.LiveEvents, err = m.Int64Counter("guruvoice.live.events",
		metric.WithDescription("Total live session server events by kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("guruvoice.active_sessions",
		metric.WithDescription("Number of open live sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordChunkFetch records one synthesis fetch with the standard attribute
// set.
func (m *Metrics) RecordChunkFetch(ctx context.Context, provider, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.ChunksFetched.Add(ctx, 1, attrs)
	m.SynthesisDuration.Record(ctx, seconds, attrs)
}

// RecordLiveEvent records one live session server event.
func (m *Metrics) RecordLiveEvent(ctx context.Context, kind string) {
	m.LiveEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
