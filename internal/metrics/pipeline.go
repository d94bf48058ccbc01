// Package metrics provides Prometheus metrics for the frame pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "videoloop"

// States reported by the state gauge, in display order.
var States = []string{"init", "steady", "fatal", "stopped"}

var (
	framesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "frames_forwarded_total",
		Help:      "Frames written to the sink",
	})

	bytesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "bytes_forwarded_total",
		Help:      "Payload bytes written to the sink",
	})

	warmupDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "warmup_discards_total",
		Help:      "Capture frames dropped while warming up a stream",
	})

	corruptFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "corrupt_frames_total",
		Help:      "Capture frames the driver flagged as corrupt, forwarded as is",
	})

	state = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "state",
		Help:      "1 for the current state of the transfer loop, 0 otherwise",
	}, []string{"state"})

	transformSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "transform_duration_seconds",
		Help:      "Time spent transforming one frame",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "errors_total",
		Help:      "Fatal pipeline errors by code",
	}, []string{"code"})

	frameBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "frame_bytes",
		Help:      "Payload size of the last forwarded frame",
	})
)

// RecordFrame accounts for one forwarded frame.
func RecordFrame(bytes int, transform time.Duration) {
	framesForwarded.Inc()
	bytesForwarded.Add(float64(bytes))
	frameBytes.Set(float64(bytes))
	transformSeconds.Observe(transform.Seconds())
}

// RecordWarmupDiscard accounts for one capture frame dropped during warm-up.
func RecordWarmupDiscard() {
	warmupDiscards.Inc()
}

// RecordCorruptFrame accounts for one capture frame carrying the driver's
// error flag.
func RecordCorruptFrame() {
	corruptFrames.Inc()
}

// SetState marks current as the active loop state.
func SetState(current string) {
	for _, s := range States {
		v := 0.0
		if s == current {
			v = 1
		}
		state.WithLabelValues(s).Set(v)
	}
}

// RecordError counts a fatal error. An empty code is recorded as "unknown".
func RecordError(code string) {
	if code == "" {
		code = "unknown"
	}
	errorsTotal.WithLabelValues(code).Inc()
}
