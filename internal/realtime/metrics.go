package realtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks push-channel activity.
type Metrics struct {
	Clients    prometheus.Gauge
	Broadcasts *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Currently connected realtime clients",
		}),
		Broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_broadcasts_total",
				Help: "Broadcast messages fanned out, by event type",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(m.Clients, m.Broadcasts)
	return m
}
