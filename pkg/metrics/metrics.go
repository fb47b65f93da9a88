package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
	ResultBadRequest  = "bad_request"
)

var (
	TileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbtiles_tile_requests_total",
		Help: "Total number of tile requests by result",
	}, []string{"result"})

	TileBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mbtiles_tile_bytes_total",
		Help: "Total number of tile bytes served",
	})

	ArchiveLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mbtiles_archive_lookup_duration_seconds",
		Help:    "Duration of archive tile lookups in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	ArchiveOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbtiles_archive_open_attempts_total",
		Help: "Total number of archive open attempts by result",
	}, []string{"result"})

	ArchiveAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mbtiles_archive_available",
		Help: "1 when the tile archive is open, 0 when serving in degraded mode",
	})
)
