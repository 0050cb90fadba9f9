// Package metrics declares the Prometheus collectors of the service and the
// HTTP middleware that feeds the request counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmarks_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookmarks_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmarks_auth_attempts_total",
		Help: "Signup and signin attempts by outcome.",
	}, []string{"operation", "result"})

	BookmarkOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookmarks_bookmark_operations_total",
		Help: "Successful bookmark mutations by operation.",
	}, []string{"operation"})

	ForbiddenAccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookmarks_forbidden_access_total",
		Help: "Attempts to reach a bookmark owned by another user.",
	})
)

// Middleware counts every request under its chi route pattern, so that
// /bookmarks/1 and /bookmarks/2 share the /bookmarks/{id} series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if routeContext := chi.RouteContext(r.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
