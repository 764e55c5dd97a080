package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters/histograms for the webhook relay flow.
type RelayMetrics struct {
	inboundTotal    *prometheus.CounterVec
	generationTotal *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warelay",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound webhook deliveries",
		}, []string{"outcome", "shape"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warelay",
			Subsystem: "reply",
			Name:      "generation_total",
			Help:      "Total reply generation attempts",
		}, []string{"outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warelay",
			Subsystem: "reply",
			Name:      "dispatch_total",
			Help:      "Total outbound send attempts",
		}, []string{"outcome", "candidate"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "warelay",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.generationTotal, m.dispatchTotal, m.webhookLatency)
	return m
}

func (m *RelayMetrics) ObserveInbound(outcome, shape string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(outcome, shape).Inc()
}

func (m *RelayMetrics) ObserveGeneration(outcome string) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) ObserveDispatch(outcome, candidate string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome, candidate).Inc()
}

func (m *RelayMetrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}
