// Package metrics exports logger and collector counters in Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lixenwraith/ultralog"
)

const _namespace = "ultralog"

// Source is anything that can report logger statistics
type Source interface {
	Stats() ultralog.Stats
}

// LoggerCollector reads a Source on every scrape. Counters are cumulative
// since the logger was created.
type LoggerCollector struct {
	src Source

	processed       *prometheus.Desc
	filtered        *prometheus.Desc
	closedLogs      *prometheus.Desc
	ioErrors        *prometheus.Desc
	rotations       *prometheus.Desc
	fileSize        *prometheus.Desc
	queueLength     *prometheus.Desc
	dropped         *prometheus.Desc
	batchesSent     *prometheus.Desc
	recordsSent     *prometheus.Desc
	attempts        *prometheus.Desc
	uptime          *prometheus.Desc
	dispatcherState *prometheus.Desc
}

var _ prometheus.Collector = (*LoggerCollector)(nil)

// NewLoggerCollector describes src under a const "logger" label
func NewLoggerCollector(src Source, logger string) *LoggerCollector {
	labels := prometheus.Labels{"logger": logger}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(_namespace, "logger", name), help, variable, labels)
	}

	return &LoggerCollector{
		src:             src,
		processed:       desc("records_processed_total", "Records accepted past the level filter."),
		filtered:        desc("records_filtered_total", "Records discarded by the level filter."),
		closedLogs:      desc("records_after_close_total", "Records logged after Close."),
		ioErrors:        desc("io_errors_total", "Swallowed local write, flush and rotation failures."),
		rotations:       desc("rotations_total", "Completed file rotations."),
		fileSize:        desc("file_size_bytes", "Size of the active log file."),
		queueLength:     desc("queue_length", "Records waiting for remote delivery."),
		dropped:         desc("records_dropped_total", "Records lost on the remote path.", "reason"),
		batchesSent:     desc("batches_sent_total", "Batches acknowledged by the collector."),
		recordsSent:     desc("records_sent_total", "Records acknowledged by the collector."),
		attempts:        desc("delivery_attempts_total", "HTTP delivery attempts including retries."),
		uptime:          desc("uptime_seconds", "Seconds since the logger was created."),
		dispatcherState: desc("dispatcher_info", "Current dispatcher and breaker state.", "state", "breaker"),
	}
}

// Describe implements prometheus.Collector
func (c *LoggerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.processed
	ch <- c.filtered
	ch <- c.closedLogs
	ch <- c.ioErrors
	ch <- c.rotations
	ch <- c.fileSize
	ch <- c.queueLength
	ch <- c.dropped
	ch <- c.batchesSent
	ch <- c.recordsSent
	ch <- c.attempts
	ch <- c.uptime
	ch <- c.dispatcherState
}

// Collect implements prometheus.Collector. Path-specific series are only
// emitted for the path the logger runs on.
func (c *LoggerCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.processed, s.Processed)
	counter(c.filtered, s.Filtered)
	counter(c.closedLogs, s.ClosedLogs)
	gauge(c.uptime, s.Uptime.Seconds())

	switch s.Mode {
	case ultralog.ModeLocal:
		counter(c.ioErrors, s.IOErrors)
		counter(c.rotations, s.Rotations)
		gauge(c.fileSize, float64(s.FileSize))

	case ultralog.ModeRemote:
		gauge(c.queueLength, float64(s.QueueLength))
		counter(c.dropped, s.QueueDropped, "queue_full")
		counter(c.dropped, s.DeliveryDropped, "delivery_failed")
		counter(c.batchesSent, s.BatchesSent)
		counter(c.recordsSent, s.RecordsSent)
		counter(c.attempts, s.Attempts)
		gauge(c.dispatcherState, 1, s.DispatcherState, s.Breaker)
	}
}

// ServerMetrics counts what a collector accepts and rejects
type ServerMetrics struct {
	Received *prometheus.CounterVec
	Requests *prometheus.CounterVec
	Rejected prometheus.Counter
}

// NewServerMetrics registers the collector series with reg
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	factory := promauto.With(reg)
	return &ServerMetrics{
		Received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "collector",
			Name:      "records_received_total",
			Help:      "Records accepted by the collector.",
		}, []string{"level", "transport"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "collector",
			Name:      "requests_total",
			Help:      "Ingest requests by outcome.",
		}, []string{"transport", "code"}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "collector",
			Name:      "auth_rejected_total",
			Help:      "Requests and connections refused for a bad token.",
		}),
	}
}
