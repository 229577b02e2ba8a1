// Package metrics exposes scan telemetry as Prometheus gauges written
// in the node exporter textfile format.
package metrics

import (
	"github.com/dundee/topfiles/pkg/analyze"
	"github.com/dundee/topfiles/pkg/cache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds gauges describing the last scan
type Metrics struct {
	registry *prometheus.Registry

	files          prometheus.Gauge
	cacheHit       prometheus.Gauge
	scanTimestamp  prometheus.Gauge
	scanDuration   prometheus.Gauge
	filesSkipped   prometheus.Gauge
	dirsScanned    prometheus.Gauge
	dirsSkipped    prometheus.Gauge
	depthLimitHits prometheus.Gauge
	bytesTotal     prometheus.Gauge
	maxPathLength  prometheus.Gauge
	avgPathLength  prometheus.Gauge
	longPaths      *prometheus.GaugeVec
	memoryDelta    prometheus.Gauge
	level          *prometheus.GaugeVec
}

// New creates gauges registered in a private registry
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topfiles",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		registry:       prometheus.NewRegistry(),
		files:          gauge("files", "Number of files in the current result set"),
		cacheHit:       gauge("cache_hit", "1 if the result set was loaded from the cache"),
		scanTimestamp:  gauge("scan_timestamp_seconds", "Unix time of the scan producing the result set"),
		scanDuration:   gauge("scan_duration_seconds", "Duration of the directory walk"),
		filesSkipped:   gauge("files_skipped", "Files whose metadata could not be read"),
		dirsScanned:    gauge("directories_scanned", "Directories visited by the walk"),
		dirsSkipped:    gauge("directories_skipped", "Directories skipped because of errors"),
		depthLimitHits: gauge("depth_limit_hits", "Branches cut off by the depth limit"),
		bytesTotal:     gauge("bytes", "Total size of collected files"),
		maxPathLength:  gauge("path_length_max", "Longest collected path in characters"),
		avgPathLength:  gauge("path_length_avg", "Average collected path length in characters"),
		memoryDelta:    gauge("memory_delta_bytes", "Heap growth during the walk"),
		longPaths: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "topfiles",
			Name:      "long_paths",
			Help:      "Paths longer than the configured limits",
		}, []string{"limit"}),
		level: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "topfiles",
			Name:      "telemetry_level",
			Help:      "Severity tier of scan telemetry (0 normal, 1 moderate, 2 high, 3 critical)",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.files, m.cacheHit, m.scanTimestamp, m.scanDuration, m.filesSkipped,
		m.dirsScanned, m.dirsSkipped, m.depthLimitHits, m.bytesTotal,
		m.maxPathLength, m.avgPathLength, m.memoryDelta, m.longPaths, m.level,
	)
	return m
}

// Registry returns the registry holding the gauges
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe sets gauges from the result set metadata and telemetry of the walk.
// stats is nil when the result set came from the cache.
func (m *Metrics) Observe(meta *cache.Metadata, stats *analyze.ScanStats) {
	if meta != nil {
		m.files.Set(float64(meta.FileCount))
		m.scanTimestamp.Set(float64(meta.ScanDateTimeUtc.Unix()))
	}

	if stats == nil {
		m.cacheHit.Set(1)
		return
	}
	m.cacheHit.Set(0)

	m.scanDuration.Set(stats.TotalScanTime.Seconds())
	m.filesSkipped.Set(float64(stats.FilesSkipped))
	m.dirsScanned.Set(float64(stats.DirsScanned))
	m.dirsSkipped.Set(float64(stats.DirsSkipped))
	m.depthLimitHits.Set(float64(stats.DepthLimitHits))
	m.bytesTotal.Set(float64(stats.TotalBytes))
	m.maxPathLength.Set(float64(stats.MaxPathLength))
	m.avgPathLength.Set(stats.AveragePathLength())
	m.memoryDelta.Set(float64(stats.MemoryDelta()))
	m.longPaths.WithLabelValues("warn").Set(float64(stats.PathsOverWarn))
	m.longPaths.WithLabelValues("critical").Set(float64(stats.PathsOverCritical))
	m.level.WithLabelValues("file_count").Set(float64(stats.FileCountLevel))
	m.level.WithLabelValues("path_length").Set(float64(stats.PathLengthLevel))
	m.level.WithLabelValues("memory").Set(float64(stats.MemoryLevel))
}

// WriteTextfile writes the gauges to path for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "writing metrics to %s", path)
}
