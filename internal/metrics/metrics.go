package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "emc"
)

var (
	refreshDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

	// Store metrics
	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time taken to fetch a snapshot list from the backend.",
		Buckets:   refreshDurationBuckets,
	}, []string{"list"})

	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refreshes_total",
		Help:      "Count of snapshot list fetches.",
	}, []string{"list", "status"})

	StaleResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Count of list responses discarded by the sequence guard.",
	}, []string{"list"})

	SnapshotSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_size",
		Help:      "Number of records in the last applied snapshot.",
	}, []string{"list"})

	// Wizard metrics
	WizardDeploysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wizard_deploys_total",
		Help:      "Count of wizard deploy submissions.",
	}, []string{"status"})

	WizardOpensRefusedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wizard_opens_refused_total",
		Help:      "Count of wizard opens refused by the connector ceiling.",
	})

	// Session metrics
	TokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Count of access token refresh attempts.",
	}, []string{"status"})
)
