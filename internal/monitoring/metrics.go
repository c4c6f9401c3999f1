package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Branch string

const (
	BranchHuman    Branch = "human"
	BranchAnalysis Branch = "analysis"
	BranchError    Branch = "error"
)

var (
	Registry = prometheus.NewRegistry()

	RoutesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulseai",
		Name:      "routes_total",
		Help:      "Routed messages by outcome branch",
	}, []string{"branch"})

	ConsumedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulseai",
		Name:      "consumed_messages_total",
		Help:      "Kafka messages handled by topic and status",
	}, []string{"topic", "status"})

	ClassifierHealthy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pulseai",
		Name:      "classifier_healthy",
		Help:      "1 while the sentiment backend passes its health check",
	})
)

func init() {
	Registry.MustRegister(RoutesTotal, ConsumedMessages, ClassifierHealthy)
}

func ObserveRoute(branch Branch) {
	RoutesTotal.WithLabelValues(string(branch)).Inc()
}

func ObserveConsumed(topic, status string) {
	ConsumedMessages.WithLabelValues(topic, status).Inc()
}

// Handler serves the pulseai registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
