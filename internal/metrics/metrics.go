package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_gateway"

// Collectors groups the gateway's Prometheus instruments.
type Collectors struct {
	OnlineConnections prometheus.Gauge
	OnlineUsers       prometheus.Gauge
	Events            *prometheus.CounterVec
	BridgeDuration    *prometheus.HistogramVec
	DroppedDeliveries prometheus.Counter
}

func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Live authenticated connections.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Distinct users with at least one live connection.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound client events by name and outcome.",
		}, []string{"event", "outcome"}),
		BridgeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_request_seconds",
			Help:      "Latency of calls to the persistence service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		DroppedDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_deliveries_total",
			Help:      "Outbound frames dropped because a client buffer was full.",
		}),
	}
	reg.MustRegister(c.OnlineConnections, c.OnlineUsers, c.Events, c.BridgeDuration, c.DroppedDeliveries)
	return c
}

// NewUnregistered builds collectors on a private registry. Used by tests.
func NewUnregistered() *Collectors {
	return New(prometheus.NewRegistry())
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
