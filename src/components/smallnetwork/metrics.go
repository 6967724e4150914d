package smallnetwork

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	peers    prometheus.Gauge
	received prometheus.Counter
	sent     prometheus.Counter
}

func newMetrics(registry prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "net_peers",
			Help: "number of connected peers",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "net_messages_received_total",
			Help: "number of messages received from peers",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "net_messages_sent_total",
			Help: "number of messages sent to peers",
		}),
	}
	if registry == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.peers, m.received, m.sent} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
