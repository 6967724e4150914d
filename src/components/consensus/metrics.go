package consensus

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	finalizedHeight prometheus.Gauge
	proposals       *prometheus.CounterVec
}

func newMetrics(registry prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		finalizedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_finalized_height",
			Help: "height of the last finalized block",
		}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consensus_proposals_total",
			Help: "number of proposals handled, by outcome",
		}, []string{"outcome"}),
	}
	if registry == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.finalizedHeight, m.proposals} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
