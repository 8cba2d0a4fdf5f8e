package middleware

import (
	"net/http"
	"time"

	"github.com/nightshift/inventory-backend/pkg/metrics"
)

// Metrics records request counts and latencies labelled by chi route pattern, so
// /api/v1/items/{id} is one series regardless of the id.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newRecorder(w, false)
			start := time.Now()
			next.ServeHTTP(rec, r)
			m.Observe(r.Method, routePattern(r), rec.Status(), time.Since(start))
		})
	}
}
