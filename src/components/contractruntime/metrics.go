package contractruntime

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	genesis  prometheus.Histogram
	execute  prometheus.Histogram
	deploys  prometheus.Counter
	failures prometheus.Counter
}

func newMetrics(registry prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		genesis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "contract_runtime_commit_genesis_duration_seconds",
			Help: "time spent committing genesis",
		}),
		execute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contract_runtime_execute_duration_seconds",
			Help:    "time spent executing the deploys of a block",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		deploys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contract_runtime_deploys_executed_total",
			Help: "number of deploys executed",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contract_runtime_deploys_failed_total",
			Help: "number of executed deploys that failed",
		}),
	}
	if registry == nil {
		return m, nil
	}
	collectors := []prometheus.Collector{m.genesis, m.execute, m.deploys, m.failures}
	for i, c := range collectors {
		if err := registry.Register(c); err != nil {
			for _, r := range collectors[:i] {
				registry.Unregister(r)
			}
			return nil, err
		}
	}
	return m, nil
}
