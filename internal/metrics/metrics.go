package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoutlabs/mailscout/internal/health"
)

var (
	// DNS metrics

	DNSLookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mailscout",
		Name:      "dns_lookup_duration_seconds",
		Help:      "Duration of outbound MX queries, by outcome.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	MXCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mailscout",
		Name:      "mx_cache_hits_total",
		Help:      "MX verifications served from the TTL cache.",
	})

	MXCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mailscout",
		Name:      "mx_cache_misses_total",
		Help:      "MX verifications requiring a DNS lookup.",
	})

	MXSingleflightShared = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mailscout",
		Name:      "mx_singleflight_shared_total",
		Help:      "Verify calls that piggybacked on another caller's in-flight lookup.",
	})

	// Quota metrics

	QuotaRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailscout",
		Name:      "quota_rejections_total",
		Help:      "Requests rejected because the daily quota was exhausted.",
	}, []string{"plan"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mailscout",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailscout",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		DNSLookupDuration,
		MXCacheHits,
		MXCacheMisses,
		MXSingleflightShared,
		QuotaRejectionsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
