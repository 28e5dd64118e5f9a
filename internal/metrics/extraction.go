package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "label_line"

// Extraction Prometheus metrics.
var (
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of target line extractions",
		},
		[]string{"source", "outcome"}, // source: image, detections; outcome: match, no_match, error
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each extraction stage in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	LinesReconstructed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lines_reconstructed",
			Help:      "Number of text lines reconstructed per extraction",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	MatchConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_confidence",
			Help:      "Average confidence of matched target lines",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

var registerOnce sync.Once

// RegisterExtractionMetrics registers the extraction metrics with the default
// registry. Safe to call more than once.
func RegisterExtractionMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ExtractionsTotal, StageDuration, LinesReconstructed, MatchConfidence)
	})
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordExtraction records the outcome of one extraction.
func RecordExtraction(source string, found bool, lines int, confidence float64) {
	outcome := "no_match"
	if found {
		outcome = "match"
		MatchConfidence.Observe(confidence)
	}
	ExtractionsTotal.WithLabelValues(source, outcome).Inc()
	LinesReconstructed.Observe(float64(lines))
}

// RecordFailure records an extraction that ended in an error.
func RecordFailure(source string) {
	ExtractionsTotal.WithLabelValues(source, "error").Inc()
}
