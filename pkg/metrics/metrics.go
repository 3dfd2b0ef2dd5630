package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll outcomes
const (
	OutcomeResolved  = "resolved"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Metrics for monitoring
var (
	RelaySubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_submissions_total",
		Help: "The total number of meta-transactions submitted to the relay",
	}, []string{"chain_id", "mode", "status"})

	TaskStatusPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_task_status_polls_total",
		Help: "The total number of relay task status requests",
	}, []string{"chain_id", "task_state"})

	PollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_poll_outcomes_total",
		Help: "Terminal results of relay task polling",
	}, []string{"chain_id", "outcome"})

	TimeToHash = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "safe_relay_time_to_hash_seconds",
		Help:    "Time from polling start until the relay reported a transaction hash",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	}, []string{"chain_id"})

	ExtractedAddresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_extracted_addresses_total",
		Help: "The total number of addresses extracted from receipt logs",
	}, []string{"chain_id"})

	ReceiptsUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_receipts_unavailable_total",
		Help: "Number of confirmed hashes the node returned no receipt for",
	}, []string{"chain_id"})

	FundingTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_funding_transfers_total",
		Help: "Plain transfers funding a Safe before relaying out of it",
	}, []string{"chain_id", "status"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_relay_runs_total",
		Help: "Completed runs by command and result",
	}, []string{"command", "result"})
)
