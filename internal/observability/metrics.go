package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onebyte",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onebyte",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	deviceOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onebyte",
			Subsystem: "device",
			Name:      "ops_total",
			Help:      "Device operations by op and result kind.",
		},
		[]string{"op", "result"},
	)
	deviceOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onebyte",
			Subsystem: "device",
			Name:      "op_duration_seconds",
			Help:      "Device operation duration in seconds.",
			Buckets:   []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1},
		},
		[]string{"op"},
	)
	deviceBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onebyte",
			Subsystem: "device",
			Name:      "bytes_total",
			Help:      "Bytes moved between callers and the device.",
		},
		[]string{"op"},
	)
	primaryLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onebyte",
			Subsystem: "primary",
			Name:      "length_bytes",
			Help:      "Logical length of the primary buffer.",
		},
	)
	messageLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onebyte",
			Subsystem: "control",
			Name:      "message_length_bytes",
			Help:      "Length of the control channel message.",
		},
	)
	openHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "onebyte",
			Subsystem: "device",
			Name:      "open_handles",
			Help:      "Open file handles on the device.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			deviceOps,
			deviceOpDuration,
			deviceBytes,
			primaryLength,
			messageLength,
			openHandles,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDeviceOp counts one device operation. result is "ok" or a fault kind.
func RecordDeviceOp(op, result string, n int, duration time.Duration) {
	RegisterMetrics()
	deviceOps.WithLabelValues(op, result).Inc()
	deviceOpDuration.WithLabelValues(op).Observe(duration.Seconds())
	if n > 0 {
		deviceBytes.WithLabelValues(op).Add(float64(n))
	}
}

// SetDeviceState publishes the current buffer lengths and handle count.
func SetDeviceState(length int64, msgLen int, handles int) {
	RegisterMetrics()
	primaryLength.Set(float64(length))
	messageLength.Set(float64(msgLen))
	openHandles.Set(float64(handles))
}
