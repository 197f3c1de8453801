package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
)

// Metrics observes request latency labelled by the matched chi route pattern.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			m.Observe(r.Method, routePattern(r), strconv.Itoa(rec.code()), time.Since(start))
		})
	}
}
