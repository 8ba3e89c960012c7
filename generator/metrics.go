package generator

import (
	"errors"

	"github.com/ATMackay/dev-keystore/keystore"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "devkeystore"

// failure kinds used as the "kind" label of the failures counter
const (
	kindInvalidKey  = "invalid_key"
	kindExists      = "exists"
	kindPersistence = "persistence"
	kindDuplicate   = "duplicate"
	kindOther       = "other"
)

// Metrics holds the counters of a generator run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	written  prometheus.Counter
	skipped  prometheus.Counter
	failures *prometheus.CounterVec
	encrypt  prometheus.Histogram
}

// NewMetrics registers the generator collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_written_total",
			Help:      "Keystore files written or overwritten.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_skipped_total",
			Help:      "Keys skipped because their keystore file already existed.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "key_failures_total",
			Help:      "Keys that could not be written, by failure kind.",
		}, []string{"kind"}),
		encrypt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "encrypt_duration_seconds",
			Help:      "Time spent deriving the key and encrypting a single record.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.written, m.skipped, m.failures, m.encrypt)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(out *keystore.Outcome) {
	switch out.Action {
	case keystore.Skipped:
		m.skipped.Inc()
	default:
		m.written.Inc()
		m.encrypt.Observe(out.Duration.Seconds())
	}
}

func (m *Metrics) fail(err error) {
	m.failures.WithLabelValues(failureKind(err)).Inc()
}

// WriteToTextfile dumps the current metric values in the text exposition
// format, for the node_exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, keystore.ErrInvalidKeyFormat):
		return kindInvalidKey
	case errors.Is(err, keystore.ErrRecordExists):
		return kindExists
	case errors.Is(err, keystore.ErrPersistence):
		return kindPersistence
	case errors.Is(err, ErrDuplicateKey):
		return kindDuplicate
	default:
		return kindOther
	}
}
