package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	apiMeter          = otel.Meter("certlink/http")
	apiRequestTime, _ = apiMeter.Float64Histogram("certlink.api.request.duration",
		metric.WithDescription("API request duration in seconds by route template"),
		metric.WithUnit("s"),
	)
	apiResponseBytes, _ = apiMeter.Int64Histogram("certlink.api.response.size",
		metric.WithDescription("API response body size"),
		metric.WithUnit("By"),
	)
	apiErrors, _ = apiMeter.Int64Counter("certlink.api.errors",
		metric.WithDescription("API responses with status >= 400 by route template"),
	)
)

// idSegments lists the collections whose next path segment is an identifier
var idSegments = map[string]bool{"certificates": true}

// reservedSegments are fixed sub-routes that must not be collapsed into {id}
var reservedSegments = map[string]bool{"refresh": true}

// RouteTemplate collapses identifiers so metric labels stay bounded,
// e.g. /api/certificates/cert-1/link becomes /api/certificates/{id}/link.
func RouteTemplate(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if idSegments[parts[i-1]] && parts[i] != "" && !reservedSegments[parts[i]] {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// Tracing names the active span after the route template, marks server errors on
// it and records per-route API metrics. Expects Telemetry to have started the span.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := RouteTemplate(r.URL.Path)
		span := trace.SpanFromContext(r.Context())
		span.SetName(r.Method + " " + route)

		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}

		span.SetAttributes(attribute.String("http.route", route))
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		ctx := r.Context()
		apiRequestTime.Record(ctx, time.Since(start).Seconds(), attrs)
		apiResponseBytes.Record(ctx, int64(wrapped.bytes), attrs)
		if status >= 400 {
			apiErrors.Add(ctx, 1, attrs)
		}
	})
}
