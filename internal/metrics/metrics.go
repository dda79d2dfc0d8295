package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AddressClassifications tracks classification results per network
	AddressClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_address_classifications_total",
			Help: "Total number of address classifications by resulting network",
		},
		[]string{"network"},
	)

	// NetworkSwitchesTotal tracks network reconfigurations
	NetworkSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_network_switches_total",
			Help: "Total number of network reconfigurations",
		},
		[]string{"network", "result"},
	)

	// ActiveNetwork is 1 for the currently configured network
	ActiveNetwork = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowpanel_active_network",
			Help: "Currently active network (1 = active)",
		},
		[]string{"network"},
	)

	// AccessCallsTotal tracks access node calls
	AccessCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_access_calls_total",
			Help: "Total number of access node calls",
		},
		[]string{"network", "method", "status"},
	)

	// AccessLatency tracks access node call latency
	AccessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowpanel_access_latency_seconds",
			Help:    "Access node call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network", "method"},
	)

	// SummaryCacheTotal tracks account summary cache lookups
	SummaryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_summary_cache_total",
			Help: "Account summary cache lookups by result",
		},
		[]string{"result"},
	)

	// TransfersSubmitted tracks batch submissions
	TransfersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_transfers_submitted_total",
			Help: "Total number of submitted transfer batches",
		},
		[]string{"result"},
	)

	// TransferRecipients tracks the number of recipients per submitted batch
	TransferRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowpanel_transfer_recipients",
			Help:    "Recipients per submitted batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	// TransactionsSealed tracks seal outcomes
	TransactionsSealed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowpanel_transactions_sealed_total",
			Help: "Total number of tracked transactions by seal outcome",
		},
		[]string{"outcome"},
	)

	// SealLatency tracks time from adoption to seal
	SealLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowpanel_seal_latency_seconds",
			Help:    "Time from submission to seal in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// TransactionsSuperseded tracks ids abandoned by a newer submission or dismissal
	TransactionsSuperseded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowpanel_transactions_superseded_total",
			Help: "Tracked transactions abandoned before their result was dismissed",
		},
	)

	// HistoryWriteErrors tracks failed transfer history writes
	HistoryWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowpanel_history_write_errors_total",
			Help: "Failed transfer history writes",
		},
	)

	// DBConnectionPoolUsage tracks database pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flowpanel_db_connection_pool_usage_percent",
			Help: "Open connections as a percentage of the pool limit",
		},
	)
)
