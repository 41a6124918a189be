package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by the dispatcher.
const (
	OutcomeSuccess   = "success"
	OutcomePermanent = "permanent_failure"
	OutcomeTransient = "transient_failure"
)

// Push holds the counters exported on /metrics.
type Push struct {
	Deliveries    *prometheus.CounterVec
	Deactivations prometheus.Counter
	Dispatches    *prometheus.CounterVec
	SendDuration  prometheus.Histogram
}

// NewPush creates the push counters and registers them on reg.
// A nil registerer skips registration, which keeps tests independent.
func NewPush(reg prometheus.Registerer) *Push {
	m := &Push{
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushsvc",
			Name:      "deliveries_total",
			Help:      "Web push send attempts by outcome.",
		}, []string{"outcome"}),
		Deactivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pushsvc",
			Name:      "subscriptions_deactivated_total",
			Help:      "Subscriptions deactivated after a 404/410 from the push service.",
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pushsvc",
			Name:      "dispatches_total",
			Help:      "Dispatch passes by result.",
		}, []string{"result"}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pushsvc",
			Name:      "send_duration_seconds",
			Help:      "Latency of a single push service request.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Deliveries, m.Deactivations, m.Dispatches, m.SendDuration)
	}
	return m
}

// ObserveDelivery counts one send outcome. Safe on a nil receiver.
func (m *Push) ObserveDelivery(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
	m.SendDuration.Observe(seconds)
}

// ObserveDispatch counts a dispatch pass. Safe on a nil receiver.
func (m *Push) ObserveDispatch(result string, deactivated int) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(result).Inc()
	m.Deactivations.Add(float64(deactivated))
}
