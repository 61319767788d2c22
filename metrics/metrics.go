package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons recorded by ParticipantSkipped.
const (
	ReasonMissingFile = "missing_file"
	ReasonEmpty       = "empty_segmentation"
	ReasonError       = "error"
)

// Metrics holds the counters for one sweep run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	participantsBuilt   *prometheus.CounterVec
	participantsSkipped *prometheus.CounterVec
	chunkFailures       prometheus.Counter
	rowsExported        prometheus.Counter
	chunkDuration       prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	participantsBuilt := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emdat_participants_built_total",
		Help: "Participant results kept in a sweep bucket",
	}, []string{"mode"})
	participantsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emdat_participants_skipped_total",
		Help: "Participant results dropped from a sweep bucket",
	}, []string{"mode", "reason"})
	chunkFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emdat_chunk_failures_total",
		Help: "Work chunks whose worker failed before producing a result map",
	})
	rowsExported := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emdat_rows_exported_total",
		Help: "Feature table rows written",
	})
	chunkDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "emdat_chunk_duration_seconds",
		Help:    "Wall time of one worker over its chunk",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	})

	registry.MustRegister(participantsBuilt, participantsSkipped, chunkFailures, rowsExported, chunkDuration)

	return &Metrics{
		registry:            registry,
		participantsBuilt:   participantsBuilt,
		participantsSkipped: participantsSkipped,
		chunkFailures:       chunkFailures,
		rowsExported:        rowsExported,
		chunkDuration:       chunkDuration,
	}
}

func (m *Metrics) ParticipantBuilt(mode string) {
	if m == nil {
		return
	}
	m.participantsBuilt.WithLabelValues(mode).Inc()
}

func (m *Metrics) ParticipantSkipped(mode, reason string) {
	if m == nil {
		return
	}
	m.participantsSkipped.WithLabelValues(mode, reason).Inc()
}

func (m *Metrics) ChunkFailed() {
	if m == nil {
		return
	}
	m.chunkFailures.Inc()
}

func (m *Metrics) RowsExported(n int) {
	if m == nil {
		return
	}
	m.rowsExported.Add(float64(n))
}

func (m *Metrics) ObserveChunk(d time.Duration) {
	if m == nil {
		return
	}
	m.chunkDuration.Observe(d.Seconds())
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
