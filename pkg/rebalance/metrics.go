package rebalance

import "github.com/prometheus/client_golang/prometheus"

// metrics groups the Prometheus collectors a Demander publishes, registered
// against a caller-supplied prometheus.Registerer rather than the global
// default (see DESIGN.md for why this isn't grounded on a single pack file).
type metrics struct {
	inFlightPartitions *prometheus.GaugeVec
	missedPartitions   *prometheus.CounterVec
	rebalanceDuration  *prometheus.HistogramVec
	dummyExchanges     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		inFlightPartitions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rebalance",
			Name:      "in_flight_partitions",
			Help:      "Partitions currently awaiting a supply message, per supplier.",
		}, []string{"cache", "supplier"}),
		missedPartitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rebalance",
			Name:      "missed_partitions_total",
			Help:      "Partitions reported missed by a supplier.",
		}, []string{"cache", "supplier"}),
		rebalanceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rebalance",
			Name:      "future_duration_seconds",
			Help:      "Wall-clock duration of a RebalanceFuture from creation to terminal state.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cache", "result"}),
		dummyExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rebalance",
			Name:      "dummy_exchanges_total",
			Help:      "Dummy exchanges forced to re-assign missed partitions.",
		}, []string{"cache"}),
	}
	for _, c := range []prometheus.Collector{m.inFlightPartitions, m.missedPartitions, m.rebalanceDuration, m.dummyExchanges} {
		_ = reg.Register(c)
	}
	return m
}
