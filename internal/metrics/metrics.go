package metrics

import "github.com/prometheus/client_golang/prometheus"

const metricPrefix = "deye_status_"

var (
	// CacheHits counts battery requests answered from the fresh snapshot.
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "cache_hits_total",
		Help: "Battery requests served from the fresh snapshot cache",
	})

	// CacheMisses counts battery requests that triggered an upstream fetch.
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "cache_misses_total",
		Help: "Battery requests that required an upstream fetch cycle",
	})

	// StaleFallbacks counts requests rescued by an expired snapshot after
	// the fresh fetch failed.
	StaleFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "stale_fallbacks_total",
		Help: "Battery requests served stale data after an upstream failure",
	})

	// AuthAttempts counts upstream login calls (not cache reads).
	AuthAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + "auth_attempts_total",
		Help: "Upstream authentication calls performed",
	})

	// FetchDuration observes the wall time of one full fetch cycle.
	FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricPrefix + "fetch_duration_seconds",
		Help:    "Duration of the authenticate+fetch+normalize cycle",
		Buckets: prometheus.DefBuckets,
	})
)

// Register installs all collectors into the default registry. Call once
// from main.
func Register() {
	prometheus.MustRegister(CacheHits, CacheMisses, StaleFallbacks, AuthAttempts, FetchDuration)
}
