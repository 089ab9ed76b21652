package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Lookup results recorded by CacheLookups.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

var (
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twitched_cache_lookups_total",
		Help: "Cache lookups by cache and result.",
	}, []string{"cache", "result"})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twitched_store_errors_total",
		Help: "Key store operations that failed and were degraded.",
	}, []string{"op"})
	PairingCodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twitched_pairing_codes_total",
		Help: "Total number of pairing codes issued.",
	})
	PairingsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twitched_pairings_completed_total",
		Help: "Pairings completed, by flow (implicit or authorization_code).",
	}, []string{"flow"})
	TokenExchangeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "twitched_token_exchange_failures_total",
		Help: "Authorization code exchanges that failed.",
	})
	UpstreamFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "twitched_upstream_failures_total",
		Help: "Upstream refills that failed, by resource.",
	}, []string{"resource"})
)

// Register registers the collectors above. It should be called once at
// application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"CacheLookups":          CacheLookups,
		"StoreErrors":           StoreErrors,
		"PairingCodesIssued":    PairingCodesIssued,
		"PairingsCompleted":     PairingsCompleted,
		"TokenExchangeFailures": TokenExchangeFailures,
		"UpstreamFailures":      UpstreamFailures,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Prometheus metrics registered.")
}

// ObserveLookup records hits and misses for a batch lookup.
func ObserveLookup(cache string, hits, misses int) {
	if hits > 0 {
		CacheLookups.WithLabelValues(cache, ResultHit).Add(float64(hits))
	}
	if misses > 0 {
		CacheLookups.WithLabelValues(cache, ResultMiss).Add(float64(misses))
	}
}
