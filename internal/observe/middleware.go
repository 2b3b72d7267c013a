package observe

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationHeader is set on every response. It carries the trace ID, or a
// random UUID when no tracer is installed.
const CorrelationHeader = "X-Correlation-ID"

// Probe and scrape endpoints are logged at debug so they do not drown out
// learner traffic.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

type responseStatus struct {
	http.ResponseWriter
	code    int
	written bool
}

func (rs *responseStatus) WriteHeader(code int) {
	if !rs.written {
		rs.code, rs.written = code, true
	}
	rs.ResponseWriter.WriteHeader(code)
}

func (rs *responseStatus) Write(b []byte) (int, error) {
	rs.written = true
	return rs.ResponseWriter.Write(b)
}

// Middleware instruments each request with a server span continued from any
// incoming traceparent header, the correlation header, the in-flight gauge,
// a latency sample keyed by the matched route and one log line.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	var prop propagation.TraceContext

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ctx, span := startServerSpan(prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header)), r)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid == "" {
				cid = uuid.NewString()
			}
			w.Header().Set(CorrelationHeader, cid)
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			m.InFlightRequests.Add(ctx, 1)
			defer m.InFlightRequests.Add(ctx, -1)

			rs := &responseStatus{ResponseWriter: w, code: http.StatusOK}
			r = r.WithContext(ctx)
			next.ServeHTTP(rs, r)

			elapsed := time.Since(began)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", routeOf(r)),
				attribute.Int("status", rs.code),
			))
			span.SetAttributes(semconv.HTTPResponseStatusCode(rs.code))

			logRequest(ctx, r, cid, rs.code, elapsed)
		})
	}
}

func startServerSpan(ctx context.Context, r *http.Request) (context.Context, trace.Span) {
	return StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.URLPath(r.URL.Path),
		),
	)
}

// routeOf prefers the ServeMux pattern so path values share one series.
func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

func logRequest(ctx context.Context, r *http.Request, cid string, code int, elapsed time.Duration) {
	level := slog.LevelInfo
	switch {
	case code >= http.StatusInternalServerError:
		level = slog.LevelWarn
	case quietPaths[strings.TrimSuffix(r.URL.Path, "/")]:
		level = slog.LevelDebug
	}
	slog.LogAttrs(ctx, level, "http request",
		slog.String("correlation_id", cid),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", code),
		slog.Duration("elapsed", elapsed),
	)
}
