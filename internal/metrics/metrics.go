// Package metrics holds Prometheus instruments that are used across the
// engine.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "site_cache_entries",
			Help: "Number of site configurations currently cached in memory.",
		})

	SiteLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_load_total",
			Help: "Cumulative number of site configurations loaded from storage.",
		})

	SiteLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_load_errors_total",
			Help: "Cumulative number of site load errors (misses excluded).",
		})

	SiteEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_evict_total",
			Help: "Cumulative number of sites evicted from the cache.",
		})

	RenderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_total",
			Help: "Page renders by outcome (ok, not_found, error).",
		}, []string{"outcome"})

	RenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Wall time of one page render.",
			Buckets: prometheus.DefBuckets,
		})

	BlockErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "block_render_errors_total",
			Help: "Content blocks replaced by a placeholder, by category.",
		}, []string{"category"})

	VariantFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_fallback_total",
			Help: "Lookups of unknown variant ids that fell back to the default.",
		}, []string{"category"})

	ProjectionDefaultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "property_projection_defaults_total",
			Help: "Properties projected with at least one defaulted field.",
		})

	PageViewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_views_total",
			Help: "Rendered public pages by visitor device class.",
		}, []string{"device"})

	ProvisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_total",
			Help: "Provisioning calls by result (ok, collision, invalid, error).",
		}, []string{"result"})

	TaskItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_items_total",
			Help: "Background task items by kind and final state.",
		}, []string{"kind", "state"})

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "task_queue_depth",
			Help: "Tasks waiting for a worker.",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveSites,
		SiteLoadTotal,
		SiteLoadErrorsTotal,
		SiteEvictTotal,
		RenderTotal,
		RenderDuration,
		BlockErrorsTotal,
		VariantFallbackTotal,
		ProjectionDefaultsTotal,
		PageViewsTotal,
		ProvisionTotal,
		TaskItemsTotal,
		QueueDepth,
	)
}
