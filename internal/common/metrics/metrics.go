package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	// ReconcileTotal counts EnsureUser outcomes:
	// existing, created, race_absorbed, replayed, failed.
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "identity",
			Name:      "reconcile_total",
			Help:      "Total number of launch identity reconciliations by outcome.",
		},
		[]string{"outcome"},
	)

	// ChatLinkTotal counts chat id link attempts: linked, orphan, failed.
	ChatLinkTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "chatlink",
			Name:      "updates_total",
			Help:      "Total number of chat id link updates by result.",
		},
		[]string{"result"},
	)

	// GuardDecisionsTotal counts route guard decisions per enforcement point.
	GuardDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Total number of route guard decisions.",
		},
		[]string{"guard", "decision"},
	)
)

func init() {
	Registry.MustRegister(
		ReconcileTotal,
		ChatLinkTotal,
		GuardDecisionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
