package trigger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// subscriptions counts event.bind and event.unbind outcomes
	subscriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitrix24_trigger_subscriptions_total",
			Help: "Event subscription changes by action and outcome",
		},
		[]string{"action", "outcome"}, // "bind"/"unbind", "ok"/"rejected"/"error"
	)

	// deliveries counts inbound events
	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitrix24_trigger_events_total",
			Help: "Inbound event deliveries by event name",
		},
		[]string{"event"},
	)

	// enrichFailures counts full-object fetches that failed
	enrichFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bitrix24_trigger_enrich_failures_total",
			Help: "Full-object fetches that failed and were skipped",
		},
	)
)
