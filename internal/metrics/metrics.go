// Package metrics instruments the download, load, and render paths with
// Prometheus collectors. The library hosts no HTTP server; embedding
// applications can mount Handler() wherever they serve metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asilib_downloads_total",
			Help: "Total number of archive file downloads.",
		},
		[]string{"network", "outcome"},
	)

	downloadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asilib_download_bytes_total",
			Help: "Total bytes downloaded from the archives.",
		},
		[]string{"network"},
	)

	downloadDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asilib_download_duration_seconds",
			Help:    "Archive file download duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"network"},
	)

	framesLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asilib_frames_loaded_total",
			Help: "Total image frames parsed from local files.",
		},
		[]string{"network"},
	)

	framesRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asilib_frames_rendered_total",
			Help: "Total frames rendered by the plot layer.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(downloadsTotal)
	prometheus.MustRegister(downloadBytesTotal)
	prometheus.MustRegister(downloadDurationSeconds)
	prometheus.MustRegister(framesLoadedTotal)
	prometheus.MustRegister(framesRenderedTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDownload records one completed or failed download attempt.
func RecordDownload(network string, bytes int64, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	downloadsTotal.WithLabelValues(network, outcome).Inc()
	if err == nil {
		downloadBytesTotal.WithLabelValues(network).Add(float64(bytes))
		downloadDurationSeconds.WithLabelValues(network).Observe(duration.Seconds())
	}
}

// RecordFramesLoaded records frames parsed from one file.
func RecordFramesLoaded(network string, n int) {
	framesLoadedTotal.WithLabelValues(network).Add(float64(n))
}

// RecordFramesRendered records frames drawn by the plot layer.
// kind is "fisheye", "map", or "keogram".
func RecordFramesRendered(kind string, n int) {
	framesRenderedTotal.WithLabelValues(kind).Add(float64(n))
}
