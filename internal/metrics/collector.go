// Package metrics exposes Prometheus instrumentation for matching and
// alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the service's Prometheus metrics
type Collector struct {
	ActiveAlerts        prometheus.Gauge
	AlertsProcessed     *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	MatchingDuration    prometheus.Histogram
	CandidatesPerMatch  prometheus.Histogram
}

// NewCollector registers and returns the service metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in production.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ActiveAlerts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bloodmatch_active_alerts",
			Help: "Number of emergency alerts currently in the active set.",
		}),
		AlertsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_alerts_processed_total",
			Help: "Alerts processed, labeled by final pass status.",
		}, []string{"status"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_notifications_sent_total",
			Help: "Notifications delivered, labeled by channel.",
		}, []string{"channel"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_notifications_failed_total",
			Help: "Notification failures, labeled by channel.",
		}, []string{"channel"}),
		MatchingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodmatch_matching_duration_seconds",
			Help:    "Wall time of one matching pass.",
			Buckets: prometheus.DefBuckets,
		}),
		CandidatesPerMatch: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodmatch_candidates_per_match",
			Help:    "Candidates returned per matching pass.",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
	}
}
