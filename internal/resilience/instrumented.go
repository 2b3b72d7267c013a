package resilience

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/parlance/internal/observe"
	"github.com/MrWong99/parlance/pkg/provider/llm"
	"github.com/MrWong99/parlance/pkg/provider/transcribe"
	"github.com/MrWong99/parlance/pkg/provider/translate"
	"github.com/MrWong99/parlance/pkg/provider/tts"
	"github.com/MrWong99/parlance/pkg/types"
)

// record counts one provider call and its latency under name and kind.
func record(ctx context.Context, m *observe.Metrics, name, kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, name, kind)
	}
	m.RecordProviderRequest(ctx, name, kind, status)
	if h := m.DurationFor(kind); h != nil {
		h.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			observe.Attr("provider", name),
			observe.Attr("status", status),
		))
	}
}

func orDefault(m *observe.Metrics) *observe.Metrics {
	if m == nil {
		return observe.DefaultMetrics()
	}
	return m
}

// InstrumentedLLM records metrics for every completion.
type InstrumentedLLM struct {
	name    string
	inner   llm.Provider
	metrics *observe.Metrics
}

var _ llm.Provider = (*InstrumentedLLM)(nil)

// NewInstrumentedLLM wraps p. A nil m uses [observe.DefaultMetrics].
func NewInstrumentedLLM(name string, p llm.Provider, m *observe.Metrics) *InstrumentedLLM {
	return &InstrumentedLLM{name: name, inner: p, metrics: orDefault(m)}
}

func (i *InstrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := i.inner.Complete(ctx, req)
	record(ctx, i.metrics, i.name, observe.KindLLM, start, err)
	return resp, err
}

func (i *InstrumentedLLM) Capabilities() types.ModelCapabilities { return i.inner.Capabilities() }

// InstrumentedTranslate records metrics for every translation call.
type InstrumentedTranslate struct {
	name    string
	inner   translate.Provider
	metrics *observe.Metrics
}

var _ translate.Provider = (*InstrumentedTranslate)(nil)

// NewInstrumentedTranslate wraps p. A nil m uses [observe.DefaultMetrics].
func NewInstrumentedTranslate(name string, p translate.Provider, m *observe.Metrics) *InstrumentedTranslate {
	return &InstrumentedTranslate{name: name, inner: p, metrics: orDefault(m)}
}

func (i *InstrumentedTranslate) Translate(ctx context.Context, text, source, target string) (string, error) {
	start := time.Now()
	out, err := i.inner.Translate(ctx, text, source, target)
	record(ctx, i.metrics, i.name, observe.KindTranslate, start, err)
	return out, err
}

// InstrumentedTTS records metrics for every synthesis call.
type InstrumentedTTS struct {
	name    string
	inner   tts.Provider
	metrics *observe.Metrics
}

var _ tts.Provider = (*InstrumentedTTS)(nil)

// NewInstrumentedTTS wraps p. A nil m uses [observe.DefaultMetrics].
func NewInstrumentedTTS(name string, p tts.Provider, m *observe.Metrics) *InstrumentedTTS {
	return &InstrumentedTTS{name: name, inner: p, metrics: orDefault(m)}
}

func (i *InstrumentedTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	start := time.Now()
	out, err := i.inner.Synthesize(ctx, text, lang)
	record(ctx, i.metrics, i.name, observe.KindTTS, start, err)
	return out, err
}

// InstrumentedTranscribe records metrics for uploads, submissions and
// status polls; each poll counts as one request.
type InstrumentedTranscribe struct {
	name    string
	inner   transcribe.Provider
	metrics *observe.Metrics
}

var _ transcribe.Provider = (*InstrumentedTranscribe)(nil)

// NewInstrumentedTranscribe wraps p. A nil m uses [observe.DefaultMetrics].
func NewInstrumentedTranscribe(name string, p transcribe.Provider, m *observe.Metrics) *InstrumentedTranscribe {
	return &InstrumentedTranscribe{name: name, inner: p, metrics: orDefault(m)}
}

func (i *InstrumentedTranscribe) Upload(ctx context.Context, audio io.Reader) (string, error) {
	start := time.Now()
	h, err := i.inner.Upload(ctx, audio)
	record(ctx, i.metrics, i.name, observe.KindTranscribe, start, err)
	return h, err
}

func (i *InstrumentedTranscribe) Submit(ctx context.Context, handle, language string) (types.TranscriptionJob, error) {
	start := time.Now()
	job, err := i.inner.Submit(ctx, handle, language)
	record(ctx, i.metrics, i.name, observe.KindTranscribe, start, err)
	return job, err
}

func (i *InstrumentedTranscribe) Status(ctx context.Context, id string) (types.TranscriptionJob, error) {
	start := time.Now()
	job, err := i.inner.Status(ctx, id)
	record(ctx, i.metrics, i.name, observe.KindTranscribe, start, err)
	return job, err
}
