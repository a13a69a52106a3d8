// Package metrics exposes Prometheus instrumentation for the ratings service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_ratings",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campus_ratings",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	ratingsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_ratings",
		Name:      "ratings_submitted_total",
		Help:      "Rating submissions by subject kind and outcome.",
	}, []string{"kind", "outcome"})

	ratingsRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_ratings",
		Name:      "ratings_removed_total",
		Help:      "Rating deletions by subject kind.",
	}, []string{"kind"})

	proofsMarked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_ratings",
		Name:      "eligibility_proofs_total",
		Help:      "Engagement proofs recorded by subject kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, ratingsSubmitted, ratingsRemoved, proofsMarked)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RatingSubmitted records one submission; created distinguishes a first
// rating from a replacement.
func RatingSubmitted(kind string, created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	ratingsSubmitted.WithLabelValues(kind, outcome).Inc()
}

// RatingRemoved records one deletion.
func RatingRemoved(kind string) {
	ratingsRemoved.WithLabelValues(kind).Inc()
}

// ProofMarked records one engagement proof.
func ProofMarked(kind string) {
	proofsMarked.WithLabelValues(kind).Inc()
}

// Middleware records request counts and latencies per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
