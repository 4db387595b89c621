package providers

import (
	"net/http"
	"time"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// trackedEndpoints is the fixed route table for request metrics. Paths
// outside it collapse into a single "other" bucket so arbitrary request
// paths cannot grow the label set.
var trackedEndpoints = map[string]struct{}{
	"/sync":          {},
	"/status":        {},
	"/exports":       {},
	"/export":        {},
	"/source/check":  {},
	"/auth/start":    {},
	"/auth/complete": {},
	"/health":        {},
	"/metrics":       {},
}

func normalizeEndpoint(path string) string {
	if _, ok := trackedEndpoints[path]; ok {
		return path
	}
	return "other"
}

func MetricsMiddleware(metrics MetricsProviderInterface, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		endpoint := normalizeEndpoint(r.URL.Path)
		metrics.IncRequestsTotal(endpoint, sw.status)
		metrics.ObserveRequestDuration(endpoint, duration)
	})
}
