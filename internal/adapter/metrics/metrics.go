package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TrackerMetrics holds all Prometheus metrics for the playtime tracker.
type TrackerMetrics struct {
	LinesTotal            *prometheus.CounterVec
	CorrelationMismatches prometheus.Counter
	OrphanDisconnects     prometheus.Counter
	OpenSessions          prometheus.Gauge
	PendingIdentities     *prometheus.GaugeVec
	EvictedPending        prometheus.Counter
	NotificationsTotal    *prometheus.CounterVec
	ProfileLookups        *prometheus.CounterVec
	APIKeyCacheHits       prometheus.Counter
	APIKeyCacheMisses     prometheus.Counter
}

// NewTrackerMetrics initializes and registers the Prometheus metrics.
func NewTrackerMetrics() *TrackerMetrics {
	return &TrackerMetrics{
		LinesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Total number of ingested log lines by outcome.",
		}, []string{"outcome"}), // outcome: applied, duplicate, unrecognized, mismatch, orphan, error
		CorrelationMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "correlate",
			Name:      "mismatches_total",
			Help:      "Total number of events that arrived with no matching predecessor.",
		}),
		OrphanDisconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "correlate",
			Name:      "orphan_disconnects_total",
			Help:      "Total number of disconnect events with no open session.",
		}),
		OpenSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "playtime_tracker",
			Subsystem: "correlate",
			Name:      "open_sessions_gauge",
			Help:      "Number of sessions currently open.",
		}),
		PendingIdentities: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "playtime_tracker",
			Subsystem: "correlate",
			Name:      "pending_identities_gauge",
			Help:      "In-memory pending correlation entries by stage.",
		}, []string{"stage"}), // stage: awaiting_session, awaiting_join
		EvictedPending: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "correlate",
			Name:      "evicted_pending_total",
			Help:      "Total number of abandoned pending entries evicted.",
		}),
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of outbound notifications by status.",
		}, []string{"status"}), // status: sent, error
		ProfileLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "profile",
			Name:      "lookups_total",
			Help:      "Total number of Steam profile lookups by result.",
		}, []string{"result"}), // result: cache_hit, resolved, error
		APIKeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playtime_tracker",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}
