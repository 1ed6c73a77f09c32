package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the gateway.
type Metrics struct {
	CodeExchanges     *prometheus.CounterVec
	TurnsSent         *prometheus.CounterVec
	TurnFailures      *prometheus.CounterVec
	RepliesDropped    prometheus.Counter
	ValidationRejects prometheus.Counter
}

// New creates and registers all counters on the default registry.
func New() *Metrics {
	return &Metrics{
		CodeExchanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgw_code_exchanges_total",
			Help: "Authorization-code exchange attempts by result.",
		}, []string{"result"}),
		TurnsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgw_turns_sent_total",
			Help: "User turns accepted and forwarded to a dialogue backend.",
		}, []string{"bot"}),
		TurnFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgw_turn_failures_total",
			Help: "Dialogue backend calls that ended in a synthetic error turn.",
		}, []string{"bot"}),
		RepliesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatgw_replies_dropped_total",
			Help: "Reply elements that classified to no renderable payload.",
		}),
		ValidationRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatgw_validation_rejects_total",
			Help: "User turns rejected locally before any network call.",
		}),
	}
}
