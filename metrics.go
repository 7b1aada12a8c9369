// metrics.go
package main

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/credview/credview/cache"
	"github.com/credview/credview/probe"
)

// Basic event counting
var (
	invocationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credview_hook_invocations_total",
			Help: "Total number of committing-creds hook invocations",
		},
	)

	commitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credview_commits_total",
			Help: "Total number of correlation records committed, by reason",
		},
		[]string{"reason"},
	)

	replayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credview_replay_errors_total",
			Help: "Total number of replay input errors by type",
		},
		[]string{"error_type"},
	)

	excludedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credview_excluded_events_total",
			Help: "Total number of events excluded by filters",
		},
		[]string{"filter_type"},
	)
)

// Hook timing
var (
	hookDurations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credview_hook_duration_seconds",
			Help:    "Time spent in one committing-creds invocation",
			Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 12),
		},
	)
)

// Cache and system resource usage
var (
	cacheRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "credview_cache_records",
			Help: "Number of live correlation records in the cache",
		},
	)

	resourceUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "credview_resource_usage",
			Help: "Current resource utilization stats",
		},
		[]string{"resource"},
	)
)

// monitorResources periodically refreshes cache and runtime gauges until
// done is closed
func monitorResources(done <-chan struct{}, c cache.JoinedInfoCache, p *probe.Probe) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			cacheRecords.Set(float64(c.Len()))

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			resourceUsage.WithLabelValues("memory").Set(float64(mem.Alloc))
			resourceUsage.WithLabelValues("goroutines").Set(float64(runtime.NumGoroutine()))

			stats := p.Stats()
			resourceUsage.WithLabelValues("hook_invocations").Set(float64(stats.Invocations))
			resourceUsage.WithLabelValues("hook_aborts").Set(float64(stats.Aborts))
		}
	}
}

// recordCommitByReason bumps the commit counter using the record's own
// fields, mirroring the cache commit predicate
func recordCommitByReason(secureExec uint32) {
	if secureExec != 0 {
		commitsTotal.WithLabelValues("secureexec").Inc()
	} else {
		commitsTotal.WithLabelValues("deleted_binary").Inc()
	}
}
