package reactor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/queue"
)

type runnerMetrics struct {
	queueTotal       *prometheus.GaugeVec
	events           prometheus.Counter
	dispatchDuration prometheus.Histogram
	effectsInFlight  prometheus.Gauge
}

func newRunnerMetrics(name string, registry prometheus.Registerer) (*runnerMetrics, error) {
	labels := prometheus.Labels{"reactor": name}
	m := &runnerMetrics{
		queueTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "scheduler_queue_total",
			Help:        "number of events waiting in the scheduler, per queue kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reactor_events_total",
			Help:        "number of events dispatched by the reactor",
			ConstLabels: labels,
		}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "reactor_dispatch_duration_seconds",
			Help:        "time spent dispatching a single event",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		effectsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "reactor_effects_in_flight",
			Help:        "number of effects currently running",
			ConstLabels: labels,
		}),
	}
	if registry == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.queueTotal, m.events, m.dispatchDuration, m.effectsInFlight} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *runnerMetrics) observeQueue(lens map[queue.Kind]int) {
	for kind, n := range lens {
		m.queueTotal.WithLabelValues(kind.String()).Set(float64(n))
	}
}
