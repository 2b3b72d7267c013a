// Package observe provides the observability primitives shared by every
// parlance service: OpenTelemetry metric instruments, tracing helpers,
// trace-aware logging and the HTTP middleware that ties them together.
//
// Metrics are exported for Prometheus scraping through [InitProvider]. The
// process-wide [DefaultMetrics] instance is what production code records to;
// tests build their own via [NewMetrics] on a manual reader.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all parlance metrics.
const meterName = "github.com/MrWong99/parlance"

// Provider kinds used as the "kind" attribute value.
const (
	KindLLM        = "llm"
	KindTranslate  = "translate"
	KindTTS        = "tts"
	KindTranscribe = "transcribe"
	KindDictionary = "dictionary"
)

// Metrics holds the OpenTelemetry instruments for the application. All
// fields are safe for concurrent use.
type Metrics struct {
	// LLMDuration tracks completion latency.
	LLMDuration metric.Float64Histogram

	// TranslateDuration tracks latency of a single chunk translation.
	TranslateDuration metric.Float64Histogram

	// TTSDuration tracks latency of a single synthesis request.
	TTSDuration metric.Float64Histogram

	// TranscribeDuration tracks latency of upload, submit and status calls.
	TranscribeDuration metric.Float64Histogram

	// ProviderRequests counts provider calls by provider, kind and status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider failures by provider and kind.
	ProviderErrors metric.Int64Counter

	// DegradedChunks counts chunks that fell back to original text (translate)
	// or were skipped (synth). Attribute: "operation".
	DegradedChunks metric.Int64Counter

	// FallbackReplies counts conversational replies that used the canned
	// fallback text.
	FallbackReplies metric.Int64Counter

	// TranscriptionJobs counts finished transcription jobs by terminal status.
	TranscriptionJobs metric.Int64Counter

	// InFlightRequests tracks HTTP requests currently being served.
	InFlightRequests metric.Int64UpDownCounter

	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Translation and
// transcription calls routinely take several seconds, hence the long tail.
var latencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.LLMDuration, "parlance.llm.duration", "Latency of LLM completions."},
		{&met.TranslateDuration, "parlance.translate.duration", "Latency of a single chunk translation."},
		{&met.TTSDuration, "parlance.tts.duration", "Latency of a single speech synthesis request."},
		{&met.TranscribeDuration, "parlance.transcribe.duration", "Latency of transcription provider calls."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.ProviderRequests, "parlance.provider.requests", "Provider API requests by provider, kind and status."},
		{&met.ProviderErrors, "parlance.provider.errors", "Provider errors by provider and kind."},
		{&met.DegradedChunks, "parlance.degraded.chunks", "Chunks degraded to a fallback by operation."},
		{&met.FallbackReplies, "parlance.chat.fallback_replies", "Replies answered with the fallback text."},
		{&met.TranscriptionJobs, "parlance.transcription.jobs", "Finished transcription jobs by terminal status."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.InFlightRequests, err = m.Int64UpDownCounter("parlance.http.in_flight",
		metric.WithDescription("HTTP requests currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("parlance.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics], created on first use
// from [otel.GetMeterProvider]. Call [InitProvider] before the first call so
// that the instruments bind to the exporting provider.
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest increments the provider request counter.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider),
		Attr("kind", kind),
		Attr("status", status),
	))
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider),
		Attr("kind", kind),
	))
}

// RecordDegradedChunks adds n to the degraded chunk counter for operation.
// Zero is ignored.
func (m *Metrics) RecordDegradedChunks(ctx context.Context, operation string, n int) {
	if n <= 0 {
		return
	}
	m.DegradedChunks.Add(ctx, int64(n), metric.WithAttributes(Attr("operation", operation)))
}

// RecordFallbackReply increments the fallback reply counter.
func (m *Metrics) RecordFallbackReply(ctx context.Context, reason string) {
	m.FallbackReplies.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}

// RecordTranscriptionJob counts a job that reached a terminal status.
func (m *Metrics) RecordTranscriptionJob(ctx context.Context, status string) {
	m.TranscriptionJobs.Add(ctx, 1, metric.WithAttributes(Attr("status", status)))
}

// DurationFor returns the latency histogram for a provider kind, or nil for
// kinds without one.
func (m *Metrics) DurationFor(kind string) metric.Float64Histogram {
	switch kind {
	case KindLLM:
		return m.LLMDuration
	case KindTranslate:
		return m.TranslateDuration
	case KindTTS:
		return m.TTSDuration
	case KindTranscribe:
		return m.TranscribeDuration
	default:
		return nil
	}
}
