package observability

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the editor collectors.
type Metrics struct {
	PortMutations      *prometheus.CounterVec
	DataPropagations   prometheus.Counter
	DataFanOut         prometheus.Histogram
	ConnectionsRemoved prometheus.Counter
	Errors             prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PortMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_port_mutations_total",
				Help: "Port entries inserted, moved or removed, by kind and port type",
			},
			[]string{"kind", "port_type"},
		),
		DataPropagations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "espalier_data_propagations_total",
			Help: "Model outputs pushed to connections",
		}),
		DataFanOut: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "espalier_data_fan_out",
			Help:    "Connections reached by a single output update",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		}),
		ConnectionsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "espalier_connections_removed_total",
			Help: "Connections dropped because their port was removed",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "espalier_node_errors_total",
			Help: "Model notifications a node failed to apply",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PortMutations, m.DataPropagations, m.DataFanOut, m.ConnectionsRemoved, m.Errors)
	}
	return m
}

// Hooks returns node hooks recording into m.
func (m *Metrics) Hooks() domain.NodeHooks {
	return domain.NodeHooks{
		OnPortEvent: func(e *domain.PortEvent) {
			m.PortMutations.WithLabelValues(string(e.Kind), e.PortType.String()).Inc()
		},
		OnDataPropagated: func(e *domain.DataEvent) {
			m.DataPropagations.Inc()
			m.DataFanOut.Observe(float64(e.Connections))
		},
		OnConnectionRemoved: func(*domain.ConnectionEvent) {
			m.ConnectionsRemoved.Inc()
		},
		OnError: func(domain.NodeID, error) {
			m.Errors.Inc()
		},
	}
}
