// Package metrics exposes Prometheus counters and histograms for the
// pipeline's three stages, relabeled from the teacher's CDC-staging
// concerns (internal/staging/stage/metrics.go's
// promauto.NewHistogramVec/NewCounterVec pattern and shared latency
// buckets) to pipeline-stage concerns: rows read/transformed/written,
// batch-write latency, and retry counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets mirrors the teacher's shared histogram bucket
// convention (internal/util/metrics.LatencyBuckets, referenced but not
// retrieved into this pack) re-derived from Prometheus's own default
// buckets, widened to cover whole-batch write latencies up to a
// minute.
var LatencyBuckets = []float64{
	.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60,
}

// StageLabels distinguishes the three pipeline stages in every
// per-stage metric below.
var StageLabels = []string{"stage"}

var (
	RowsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamctl_rows_read_total",
		Help: "the number of rows produced by the reader",
	})
	RowsTransformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamctl_rows_transformed_total",
		Help: "the number of rows emitted by the transformer chain",
	})
	RowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamctl_rows_written_total",
		Help: "the number of rows accepted by the writer",
	})

	BatchWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamctl_batch_write_duration_seconds",
		Help:    "the length of time it took to write one batch, including retries",
		Buckets: LatencyBuckets,
	})
	BatchWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamctl_batch_write_errors_total",
		Help: "the number of batch writes that failed after exhausting retries",
	})
	RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamctl_retry_attempts_total",
		Help: "the number of times a batch write was retried",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamctl_stage_duration_seconds",
		Help:    "time spent blocked or working within a pipeline stage",
		Buckets: LatencyBuckets,
	}, StageLabels)
)
