// Package metrics exposes the ledger's Prometheus instruments.  They are
// registered on the default registry and served by promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	walletEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_wallet_entries_total",
			Help: "Wallet ledger entries written",
		},
		[]string{"type"},
	)

	txDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_tx_duration_seconds",
			Help:    "Duration of ledger transactions",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"operation"},
	)

	sweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sweep_runs_total",
			Help: "Scheduler sweep runs by sweep and outcome",
		},
		[]string{"sweep", "outcome"},
	)

	sweepNotices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sweep_notices_total",
			Help: "Notifications emitted by scheduler sweeps",
		},
		[]string{"sweep"},
	)

	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_sweep_duration_seconds",
			Help:    "Duration of scheduler sweeps",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"sweep"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Notification requests handed to the broker",
		},
		[]string{"queue", "status"},
	)

	seatStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_seats",
			Help: "Seats by derived status",
		},
		[]string{"status"},
	)
)

// TrackOperation counts one ledger operation.  outcome is "ok" or the
// error kind.
func TrackOperation(operation, outcome string) {
	ledgerOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveTx records how long a ledger transaction took.
func ObserveTx(operation string, d time.Duration) {
	txDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// TrackWalletEntry counts a credit or debit.
func TrackWalletEntry(entryType string) {
	walletEntries.WithLabelValues(entryType).Inc()
}

// TrackSweep counts a sweep run and its duration.
func TrackSweep(sweep string, ok bool, d time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	sweepRuns.WithLabelValues(sweep, outcome).Inc()
	sweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

// TrackSweepNotice counts one reminder emitted by a sweep.
func TrackSweepNotice(sweep string) {
	sweepNotices.WithLabelValues(sweep).Inc()
}

// TrackNotification counts a publish attempt.
func TrackNotification(queue string, ok bool) {
	status := "published"
	if !ok {
		status = "failed"
	}
	notifications.WithLabelValues(queue, status).Inc()
}

// SetSeatCounts replaces the seat gauges.
func SetSeatCounts(counts map[string]int) {
	for _, s := range []string{"available", "reserved", "occupied"} {
		seatStatus.WithLabelValues(s).Set(float64(counts[s]))
	}
}
