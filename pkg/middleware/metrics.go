package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"healthmatch/pkg/metrics"
)

// Metrics records request count and latency per route template.
func Metrics(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := RouteTemplate(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(service, r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(service, r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RouteTemplate collapses identifiers so label cardinality stays bounded:
// /api/v1/bookings/id/abc -> /api/v1/bookings/id/:id.
func RouteTemplate(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "id":
			segments[i] = ":id"
		case "user":
			segments[i] = ":user_id"
		}
	}
	return "/" + strings.Join(segments, "/")
}
