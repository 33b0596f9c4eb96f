// Package metrics exposes Prometheus metrics for filters and the membership
// service.
package metrics

import (
	"github.com/jcalabro/bloomset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bloomset"

// Metrics holds the counters and histograms of the membership service.
type Metrics struct {
	// RequestsTotal counts handled requests by operation
	RequestsTotal *prometheus.CounterVec
	// KeysTotal counts keys processed by operation and result
	KeysTotal *prometheus.CounterVec
	// SnapshotsTotal counts filter snapshots by result ("ok", "error")
	SnapshotsTotal *prometheus.CounterVec
	// SnapshotDuration observes how long writing a snapshot takes
	SnapshotDuration prometheus.Histogram
}

// New registers the service metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of membership service requests by operation",
			},
			[]string{"op"}, // "add", "contains", "test_and_add", "info", "clear", "snapshot"
		),
		KeysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keys_total",
				Help:      "Total number of keys processed by operation and result",
			},
			[]string{"op", "result"}, // result: "present", "absent", "added"
		),
		SnapshotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_total",
				Help:      "Total number of filter snapshots written by result",
			},
			[]string{"result"},
		),
		SnapshotDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_duration_seconds",
				Help:      "Time taken to write a filter snapshot",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
}

// Stats is a point-in-time summary of a filter.
type Stats struct {
	SizeInBits  uint64
	K           uint64
	Popcount    uint64
	ApproxItems float64
	FillRatio   float64
}

// StatsOf summarizes f.
func StatsOf(f *bloomset.Filter) Stats {
	return Stats{
		SizeInBits:  f.SizeInBits(),
		K:           f.K(),
		Popcount:    f.Popcount(),
		ApproxItems: f.ApproxItems(),
		FillRatio:   f.FillRatio(),
	}
}

var (
	sizeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "filter", "size_bits"),
		"Number of bits in the filter",
		[]string{"filter"}, nil,
	)
	hashCountDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "filter", "hash_count"),
		"Number of bit positions set per item",
		[]string{"filter"}, nil,
	)
	setBitsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "filter", "set_bits"),
		"Number of set bits in the filter",
		[]string{"filter"}, nil,
	)
	approxItemsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "filter", "approx_items"),
		"Estimated number of distinct items in the filter",
		[]string{"filter"}, nil,
	)
	fillRatioDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "filter", "fill_ratio"),
		"Proportion of set bits in the filter",
		[]string{"filter"}, nil,
	)
)

// FilterCollector reports gauges for one named filter at scrape time.
type FilterCollector struct {
	name  string
	stats func() Stats
}

// NewFilterCollector returns a collector for the filter called name. stats
// is invoked on every scrape and must be safe to call concurrently with the
// filter's owner, typically by taking the owner's lock.
func NewFilterCollector(name string, stats func() Stats) *FilterCollector {
	return &FilterCollector{name: name, stats: stats}
}

// Describe implements prometheus.Collector.
func (c *FilterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sizeDesc
	ch <- hashCountDesc
	ch <- setBitsDesc
	ch <- approxItemsDesc
	ch <- fillRatioDesc
}

// Collect implements prometheus.Collector.
func (c *FilterCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(sizeDesc, prometheus.GaugeValue, float64(s.SizeInBits), c.name)
	ch <- prometheus.MustNewConstMetric(hashCountDesc, prometheus.GaugeValue, float64(s.K), c.name)
	ch <- prometheus.MustNewConstMetric(setBitsDesc, prometheus.GaugeValue, float64(s.Popcount), c.name)
	ch <- prometheus.MustNewConstMetric(approxItemsDesc, prometheus.GaugeValue, s.ApproxItems, c.name)
	ch <- prometheus.MustNewConstMetric(fillRatioDesc, prometheus.GaugeValue, s.FillRatio, c.name)
}
