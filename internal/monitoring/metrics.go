// Package monitoring records join diagnostics and exposes process metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors of one provmap process.
type Metrics struct {
	Renders          prometheus.Counter
	RenderDuration   prometheus.Histogram
	FeaturesMatched  prometheus.Gauge
	UnmatchedRegions prometheus.Counter
	DatasetRows      prometheus.Gauge
	DroppedRows      prometheus.Gauge
	AssetLoads       *prometheus.CounterVec
	OverlayToggles   *prometheus.CounterVec
	TileRequests     *prometheus.CounterVec
}

// NewMetrics registers every collector on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Renders: f.NewCounter(prometheus.CounterOpts{
			Name: "provmap_renders_total",
			Help: "Total number of choropleth render passes",
		}),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "provmap_render_duration_seconds",
			Help:    "Duration of choropleth render passes",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		FeaturesMatched: f.NewGauge(prometheus.GaugeOpts{
			Name: "provmap_features_matched",
			Help: "Features joined to a dataset row in the last render",
		}),
		UnmatchedRegions: f.NewCounter(prometheus.CounterOpts{
			Name: "provmap_unmatched_regions_total",
			Help: "Distinct features found without a dataset row since the last geometry load",
		}),
		DatasetRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "provmap_dataset_rows",
			Help: "Rows in the region index",
		}),
		DroppedRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "provmap_dataset_dropped_rows",
			Help: "Dataset rows dropped for a blank region key",
		}),
		AssetLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provmap_asset_loads_total",
			Help: "Asset loads by asset and outcome",
		}, []string{"asset", "status"}),
		OverlayToggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provmap_overlay_toggles_total",
			Help: "Overlay enable and disable actions",
		}, []string{"action"}),
		TileRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provmap_basemap_tile_requests_total",
			Help: "Basemap tile requests by cache result",
		}, []string{"result"}),
	}
}

// ObserveRender records one render pass. Call with time.Now() at its start.
func (m *Metrics) ObserveRender(start time.Time, matched int) {
	m.Renders.Inc()
	m.RenderDuration.Observe(time.Since(start).Seconds())
	m.FeaturesMatched.Set(float64(matched))
}

// ObserveLoad records the outcome of loading asset.
func (m *Metrics) ObserveLoad(asset string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.AssetLoads.WithLabelValues(asset, status).Inc()
}

// ObserveToggle records an overlay toggle.
func (m *Metrics) ObserveToggle(enabled bool) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	m.OverlayToggles.WithLabelValues(action).Inc()
}

// ObserveTile records a basemap tile request: "hit", "miss" or "error".
func (m *Metrics) ObserveTile(result string) {
	m.TileRequests.WithLabelValues(result).Inc()
}
