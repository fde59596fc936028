package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "poolsim"

var (
	availableDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "available"),
		"Idle instances ready to be allocated",
		[]string{"kind"}, nil,
	)
	inUseDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "in_use"),
		"Instances currently handed out",
		[]string{"kind"}, nil,
	)
	capacityDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "capacity"),
		"Maximum instances a pool may own",
		[]string{"kind"}, nil,
	)
	createdDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "created_total"),
		"Instances constructed by the pool",
		[]string{"kind"}, nil,
	)
	allocationsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "allocations_total"),
		"Successful allocations",
		[]string{"kind"}, nil,
	)
	recycledDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "recycled_total"),
		"In-use instances reclaimed to satisfy an allocation",
		[]string{"kind"}, nil,
	)
	exhaustedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "exhausted_total"),
		"Allocations refused because the pool was full",
		[]string{"kind"}, nil,
	)
	droppedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "pool", "dropped_total"),
		"Instances found destroyed and forgotten",
		[]string{"kind"}, nil,
	)
	tickDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "tick"),
		"Tick of the last published snapshot",
		nil, nil,
	)
	poolingDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "pooling_enabled"),
		"1 when pooling is on, 0 in passthrough mode",
		nil, nil,
	)
)

// Collector exports the board's latest snapshot. It reads, never blocks the
// game loop.
type Collector struct {
	board *Board
}

func NewCollector(b *Board) *Collector {
	return &Collector{board: b}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		availableDesc, inUseDesc, capacityDesc,
		createdDesc, allocationsDesc, recycledDesc, exhaustedDesc, droppedDesc,
		tickDesc, poolingDesc,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.board.Load()
	ch <- prometheus.MustNewConstMetric(tickDesc, prometheus.GaugeValue, float64(s.Tick))
	pooling := 0.0
	if s.Pooling {
		pooling = 1
	}
	ch <- prometheus.MustNewConstMetric(poolingDesc, prometheus.GaugeValue, pooling)

	for _, p := range s.Pools {
		ch <- prometheus.MustNewConstMetric(availableDesc, prometheus.GaugeValue, float64(p.Available), p.Kind)
		ch <- prometheus.MustNewConstMetric(inUseDesc, prometheus.GaugeValue, float64(p.InUse), p.Kind)
		ch <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(p.Capacity), p.Kind)
		ch <- prometheus.MustNewConstMetric(createdDesc, prometheus.CounterValue, float64(p.Created), p.Kind)
		ch <- prometheus.MustNewConstMetric(allocationsDesc, prometheus.CounterValue, float64(p.Allocations), p.Kind)
		ch <- prometheus.MustNewConstMetric(recycledDesc, prometheus.CounterValue, float64(p.Recycled), p.Kind)
		ch <- prometheus.MustNewConstMetric(exhaustedDesc, prometheus.CounterValue, float64(p.Exhausted), p.Kind)
		ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(p.Dropped), p.Kind)
	}
}

// NewRegistry returns a Prometheus registry holding the pool collector and
// the standard Go runtime collectors.
func NewRegistry(b *Board) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(b),
		collectors.NewGoCollector(),
	)
	return reg
}
