// Package observability groups the Prometheus instruments for the service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus instruments used by the service.
type Metrics struct {
	ActiveCalls      prometheus.Gauge
	WebhookEvents    *prometheus.CounterVec
	RoutingDecisions *prometheus.CounterVec
	Interruptions    prometheus.Counter
	FallbackReplies  prometheus.Counter
	CallOutcomes     *prometheus.CounterVec
	DialerCalls      *prometheus.CounterVec
	TurnLatency      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of call sessions currently in progress.",
		}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Telephony webhook events by type.",
		}, []string{"event"}),
		RoutingDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Inbound routing decisions by reason.",
		}, []string{"reason"}),
		Interruptions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Customer interruptions of in-flight agent speech.",
		}),
		FallbackReplies: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_replies_total",
			Help:      "Turns answered by the local fallback responder.",
		}),
		CallOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_outcomes_total",
			Help:      "Finished calls by business outcome.",
		}, []string{"outcome"}),
		DialerCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialer_calls_total",
			Help:      "Outbound campaign calls by result.",
		}, []string{"result"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "Time to produce an agent reply for one turn in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000},
		}),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
