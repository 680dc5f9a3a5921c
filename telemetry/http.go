package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TracingMiddleware wraps a handler with otelhttp instrumentation:
// incoming W3C trace context is extracted, a span is created per
// request, and health probes stay out of the trace stream.
func TracingMiddleware(serviceName string, excludedPaths ...string) func(http.Handler) http.Handler {
	pathSet := make(map[string]bool, len(excludedPaths))
	for _, path := range excludedPaths {
		pathSet[path] = true
	}

	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	}
	if len(pathSet) > 0 {
		opts = append(opts, otelhttp.WithFilter(func(r *http.Request) bool {
			return !pathSet[r.URL.Path]
		}))
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName, opts...)
	}
}

// NewTracedHTTPClient returns an HTTP client whose outbound requests
// carry trace context to the backend API. Reuse one client for
// connection pooling.
func NewTracedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}
