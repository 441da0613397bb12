package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters for the intake conversation flow.
type ChatMetrics struct {
	turnsTotal    *prometheus.CounterVec
	handoffsTotal *prometheus.CounterVec
	restartsTotal prometheus.Counter
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenant_intake",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total processed user turns",
		}, []string{"intent", "state"}),
		handoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenant_intake",
			Subsystem: "chat",
			Name:      "handoffs_total",
			Help:      "Total handoffs staged for the tenant form",
		}, []string{"destination", "status"}),
		restartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tenant_intake",
			Subsystem: "chat",
			Name:      "restarts_total",
			Help:      "Total conversation restarts",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.handoffsTotal, m.restartsTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent, state string) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.turnsTotal.WithLabelValues(intent, state).Inc()
}

func (m *ChatMetrics) ObserveHandoff(destination, status string) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(destination, status).Inc()
}

func (m *ChatMetrics) ObserveRestart() {
	if m == nil {
		return
	}
	m.restartsTotal.Inc()
}
