// Package metrics exports frame transfer and capture counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richbai90/mvcapture/internal/snapshot"
)

const namespace = "mvcapture"

var (
	registerOnce sync.Once

	fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Snapshot fetches by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Snapshot fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy", "outcome"},
	)
	fetchBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Payload bytes received by completed fetches.",
		},
		[]string{"strategy"},
	)
	chunkRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "chunk_failures_total",
			Help:      "Failed chunk attempts.",
		},
	)
	fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "fallbacks_total",
			Help:      "Retrievals retried with the fallback strategy.",
		},
	)
	captures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "total",
			Help:      "Capture jobs by outcome.",
		},
		[]string{"success"},
	)
	captureDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "duration_seconds",
			Help:      "Capture job duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(fetches, fetchDuration, fetchBytes, chunkRetries, fallbacks, captures, captureDuration)
	})
}

// Outcome classifies a fetch error for labelling.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, snapshot.ErrNotReady):
		return "not_ready"
	case errors.Is(err, snapshot.ErrTransferIncomplete):
		return "incomplete"
	case errors.Is(err, snapshot.ErrChunkExhausted):
		return "chunk_exhausted"
	case errors.Is(err, snapshot.ErrFraming):
		return "framing"
	default:
		return "error"
	}
}

// Observe records snapshot progress events. It satisfies snapshot.Observer
// through snapshot.ObserverFunc.
func Observe(e snapshot.Event) {
	RegisterMetrics()
	switch e.Kind {
	case snapshot.EventRetry:
		chunkRetries.Inc()
	case snapshot.EventFallback:
		fallbacks.Inc()
	case snapshot.EventDone:
		RecordFetch(e.Strategy, e.Size, e.Elapsed, nil)
	case snapshot.EventFailed:
		RecordFetch(e.Strategy, 0, e.Elapsed, e.Err)
	}
}

func RecordFetch(strategy string, size int, duration time.Duration, err error) {
	RegisterMetrics()
	outcome := Outcome(err)
	fetches.WithLabelValues(strategy, outcome).Inc()
	fetchDuration.WithLabelValues(strategy, outcome).Observe(duration.Seconds())
	if err == nil && size > 0 {
		fetchBytes.WithLabelValues(strategy).Add(float64(size))
	}
}

func RecordCapture(duration time.Duration, success bool) {
	RegisterMetrics()
	captures.WithLabelValues(strconv.FormatBool(success)).Inc()
	captureDuration.Observe(duration.Seconds())
}

func Handler() http.Handler {
	RegisterMetrics()

	return promhttp.Handler()
}
