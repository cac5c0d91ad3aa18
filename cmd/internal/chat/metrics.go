package chat

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ruggine"

// Metrics are the Prometheus collectors of the chat server. A nil *Metrics records nothing.
type Metrics struct {
	connsActive    prometheus.Gauge
	connsTotal     prometheus.Counter
	requests       *prometheus.CounterVec
	protocolErrors prometheus.Counter
	deliveries     *prometheus.CounterVec

	// AuditDropped counts audit events discarded because the audit queue was full.
	AuditDropped prometheus.Counter
}

// NewMetrics builds the collectors and registers them (with gauges over st) on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, st *Store) *Metrics {
	m := &Metrics{
		connsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections_active",
			Help:      "Connections currently open.",
		}),
		connsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Connections accepted since start.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Decoded requests by kind.",
		}, []string{"kind"}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_errors_total",
			Help:      "Lines that could not be decoded.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deliveries_total",
			Help:      "Frames pushed to other connections by kind.",
		}, []string{"kind"}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "audit_dropped_total",
			Help:      "Audit events dropped because the queue was full.",
		}),
	}
	if reg == nil {
		return m
	}

	reg.MustRegister(m.connsActive, m.connsTotal, m.requests, m.protocolErrors, m.deliveries, m.AuditDropped)
	if st != nil {
		reg.MustRegister(
			storeGauge("users", "Registered identities.", st, func(s Stats) int { return s.Users }),
			storeGauge("groups", "Live groups.", st, func(s Stats) int { return s.Groups }),
			storeGauge("invites", "Live invite codes.", st, func(s Stats) int { return s.Invites }),
		)
	}
	return m
}

func storeGauge(name, help string, st *Store, pick func(Stats) int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(pick(st.Stats())) })
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connsActive.Inc()
	m.connsTotal.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

func (m *Metrics) request(kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
}

func (m *Metrics) protocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
}

func (m *Metrics) delivered(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deliveries.WithLabelValues(kind).Add(float64(n))
}
