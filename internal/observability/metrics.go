package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	outputsStaged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "output",
			Name:      "staged_total",
			Help:      "Result documents staged through a transaction.",
		},
		[]string{"kind"},
	)
	outputsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "output",
			Name:      "committed_total",
			Help:      "Result documents committed to their final destination.",
		},
	)
	outputsAborted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "output",
			Name:      "aborted_total",
			Help:      "Staged result documents undone by transaction abort.",
		},
	)
	outputBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "output",
			Name:      "bytes_written_total",
			Help:      "Bytes written to staging files.",
		},
	)
	resolveRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xformctl",
			Subsystem: "output",
			Name:      "resolve_rejected_total",
			Help:      "Output resolutions rejected without staging a write.",
		},
		[]string{"reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(outputsStaged, outputsCommitted, outputsAborted, outputBytes, resolveRejected)
	})
}

func RecordStaged(kind string) {
	RegisterMetrics()
	outputsStaged.WithLabelValues(kind).Inc()
}

func RecordCommitted(n int) {
	RegisterMetrics()
	outputsCommitted.Add(float64(n))
}

func RecordAborted(n int) {
	RegisterMetrics()
	outputsAborted.Add(float64(n))
}

func RecordBytesWritten(n int64) {
	RegisterMetrics()
	outputBytes.Add(float64(n))
}

func RecordResolveRejected(reason string) {
	RegisterMetrics()
	resolveRejected.WithLabelValues(reason).Inc()
}
