// Package metrics exposes run counters for the reminder job. A scheduled job
// has no scrape endpoint, so completed runs push to a Pushgateway instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	LocksScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockwatch_locks_scanned_total",
		Help: "Total lock records read from the locks table",
	})

	LocksStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockwatch_locks_stale_total",
		Help: "Locks whose battery check was older than the cutoff",
	})

	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockwatch_notifications_sent_total",
		Help: "Battery-check reminders accepted by the push gateway",
	})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockwatch_send_failures_total",
		Help: "Reminder sends rejected by the push gateway",
	})

	SendsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockwatch_sends_skipped_total",
		Help: "Sends suppressed by the cross-run dedup guard",
	})

	RunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockwatch_run_duration_seconds",
		Help: "Wall time of the last completed run",
	})
)

// Push ships the run's metrics to a Pushgateway. Best effort: callers log
// the error and move on.
func Push(gatewayURL string) error {
	return push.New(gatewayURL, "lockwatch").
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
