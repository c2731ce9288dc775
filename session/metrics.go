package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "minichat"

var (
	routedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "envelopes_routed_total",
		Help:      "Inbound envelopes applied, by destination kind.",
	}, []string{"destination"})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "envelopes_dropped_total",
		Help:      "Inbound envelopes dropped, by reason.",
	}, []string{"reason"})

	sentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "envelopes_sent_total",
		Help:      "Outbound envelopes dispatched, by kind.",
	}, []string{"kind"})

	uploadCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "media_uploads_total",
		Help:      "Media uploads, by result.",
	}, []string{"result"})

	connectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_connected",
		Help:      "Sessions currently connected.",
	})
)

const (
	dropMalformed     = "malformed"
	dropUnknownStatus = "unknown_status"
	dropStale         = "stale"
)

func init() {
	prometheus.MustRegister(routedCounter, droppedCounter, sentCounter, uploadCounter, connectedGauge)
}
