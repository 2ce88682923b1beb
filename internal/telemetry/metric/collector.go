package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/shardkv/pkg/cmap"
)

// ShardStatter reports per-shard entry counts.
type ShardStatter interface {
	ShardStats() []cmap.ShardStats
}

// StoreCollector exports key counts read from the store at scrape time.
type StoreCollector struct {
	source ShardStatter

	keysDesc  *prometheus.Desc
	totalDesc *prometheus.Desc
}

// NewStoreCollector creates a collector over source.
func NewStoreCollector(source ShardStatter) *StoreCollector {
	return &StoreCollector{
		source: source,
		keysDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys"),
			"Number of keys per shard.",
			[]string{"shard"}, nil,
		),
		totalDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys_total"),
			"Number of keys across all shards.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keysDesc
	ch <- c.totalDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	total := 0
	for _, st := range c.source.ShardStats() {
		total += st.Count
		ch <- prometheus.MustNewConstMetric(
			c.keysDesc, prometheus.GaugeValue, float64(st.Count), strconv.Itoa(st.Index),
		)
	}
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(total))
}
