// Package metrics exposes prometheus instrumentation for the tile and
// export paths plus periodic system metrics logging.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's prometheus collectors
type Metrics struct {
	TilesServed    *prometheus.CounterVec
	TileSeconds    prometheus.Histogram
	TileCacheHits  prometheus.Counter
	TileCacheMiss  prometheus.Counter
	ExportJobs     *prometheus.CounterVec
	ExportSeconds  prometheus.Histogram
	ExportInFlight prometheus.Gauge
}

// New registers the collectors on a registry; pass
// prometheus.DefaultRegisterer in production
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TilesServed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outdoor_map_tiles_served_total",
			Help: "Tiles served, by outcome (ok, client_error, server_error)",
		}, []string{"outcome"}),
		TileSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "outdoor_map_tile_render_seconds",
			Help:    "Wall time of single-tile renders",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		TileCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "outdoor_map_tile_cache_hits_total",
			Help: "Tile cache hits",
		}),
		TileCacheMiss: factory.NewCounter(prometheus.CounterOpts{
			Name: "outdoor_map_tile_cache_misses_total",
			Help: "Tile cache misses",
		}),
		ExportJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outdoor_map_export_jobs_total",
			Help: "Export jobs, by terminal state (ready, failed, rejected)",
		}, []string{"state"}),
		ExportSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "outdoor_map_export_render_seconds",
			Help:    "Wall time of export renders",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ExportInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "outdoor_map_export_in_flight",
			Help: "Export renders currently running",
		}),
	}
}
