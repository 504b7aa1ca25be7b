package boxon

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsListener is an EventListener backed by Prometheus collectors
// (the retrieved pack's client_golang dependency), giving operators
// decode/encode throughput and checksum-failure visibility without
// touching the core engine.
type MetricsListener struct {
	fieldsDecoded    *prometheus.CounterVec
	fieldsEncoded    *prometheus.CounterVec
	bitsDecoded      *prometheus.CounterVec
	bitsEncoded      *prometheus.CounterVec
	templatesLoaded  *prometheus.CounterVec
	checksumFailures *prometheus.CounterVec
	errors           *prometheus.CounterVec
}

// NewMetricsListener builds a MetricsListener and registers its
// collectors with reg. Pass prometheus.DefaultRegisterer to use the
// global registry.
func NewMetricsListener(reg prometheus.Registerer) *MetricsListener {
	m := &MetricsListener{
		fieldsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "fields_decoded_total",
			Help:      "Number of bounded fields successfully decoded, by type.",
		}, []string{"type"}),
		fieldsEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "fields_encoded_total",
			Help:      "Number of bounded fields successfully encoded, by type.",
		}, []string{"type"}),
		bitsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "bits_decoded_total",
			Help:      "Total bits consumed while decoding, by type.",
		}, []string{"type"}),
		bitsEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "bits_encoded_total",
			Help:      "Total bits written while encoding, by type.",
		}, []string{"type"}),
		templatesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "templates_loaded_total",
			Help:      "Number of Templates registered with an Engine, by type.",
		}, []string{"type"}),
		checksumFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "checksum_failures_total",
			Help:      "Number of checksum verifications that failed, by type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxon",
			Name:      "errors_total",
			Help:      "Number of decode/encode calls that returned an error, by type and error class.",
		}, []string{"type", "class"}),
	}

	reg.MustRegister(
		m.fieldsDecoded, m.fieldsEncoded,
		m.bitsDecoded, m.bitsEncoded,
		m.templatesLoaded, m.checksumFailures, m.errors,
	)
	return m
}

// OnCallStarted is a no-op: per-call correlation IDs are a tracing/logging
// concern, not something worth a high-cardinality Prometheus label.
func (m *MetricsListener) OnCallStarted(string, string, string) {}

func (m *MetricsListener) OnTemplateLoaded(typeName string) {
	m.templatesLoaded.WithLabelValues(typeName).Inc()
}

func (m *MetricsListener) OnFieldDecoded(typeName, _ string, bits uint64) {
	m.fieldsDecoded.WithLabelValues(typeName).Inc()
	m.bitsDecoded.WithLabelValues(typeName).Add(float64(bits))
}

func (m *MetricsListener) OnFieldEncoded(typeName, _ string, bits uint64) {
	m.fieldsEncoded.WithLabelValues(typeName).Inc()
	m.bitsEncoded.WithLabelValues(typeName).Add(float64(bits))
}

func (m *MetricsListener) OnChecksumVerified(typeName string, ok bool) {
	if !ok {
		m.checksumFailures.WithLabelValues(typeName).Inc()
	}
}

func (m *MetricsListener) OnError(typeName string, err error) {
	class := "unknown"
	if be, ok := err.(BoxonError); ok {
		class = be.Class()
	}
	m.errors.WithLabelValues(typeName, class).Inc()
}
