package observability

import (
	"fmt"
	"github.com/rs/zerolog/log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// catalogStates mirrors catalog.State names; kept here to avoid an import cycle.
var catalogStates = []string{"empty", "loading", "ready", "failed"}

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tours", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tours", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tours", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tours", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tours", Name: "cache_events_total", Help: "Catalog cache hits/fetches/shared waits."},
		[]string{"cache", "event"}, // event: hit|fetch|shared|ok|fail
	)
	CatalogTours = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "tours", Name: "catalog_tours", Help: "Tours in the current snapshot."},
	)
	CatalogFeatured = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "tours", Name: "catalog_featured", Help: "Featured tours in the current snapshot."},
	)
	CatalogState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "tours", Name: "catalog_state", Help: "1 for the current catalog state."},
		[]string{"state"},
	)
	RetryDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tours", Name: "retry_decisions_total", Help: "User retry requests by limiter decision."},
		[]string{"limiter", "decision"}, // decision: allow|deny|error
	)
)

// Serve exposes reg on its own listener. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		CatalogTours, CatalogFeatured, CatalogState, RetryDecisions)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveCatalog publishes the gauges for a freshly installed snapshot.
func ObserveCatalog(state string, tours, featured int) {
	for _, s := range catalogStates {
		v := 0.0
		if s == state {
			v = 1
		}
		CatalogState.WithLabelValues(s).Set(v)
	}
	CatalogTours.Set(float64(tours))
	CatalogFeatured.Set(float64(featured))
}

func ObserveRetry(limiter, decision string) {
	RetryDecisions.WithLabelValues(limiter, decision).Inc()
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
