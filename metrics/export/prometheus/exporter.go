package prometheus

import (
	"net/http"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() storefront.MetricsSnapshot
	EventsDropped() uint64
}

type describedMetric struct {
	id   storefront.MetricID
	desc *prom.Desc
}

// Exporter is a [prom.Collector] over a client's metrics snapshot.
type Exporter struct {
	source     metricsSource
	counters   []describedMetric
	histograms []describedMetric
	dropped    *prom.Desc
}

// NewExporter creates an exporter that reads from client.
func NewExporter(client *storefront.Client) *Exporter {
	return NewExporterFromSource(client)
}

// NewExporterFromSource creates an exporter over any metrics source.
func NewExporterFromSource(source metricsSource) *Exporter {
	e := &Exporter{
		source:     source,
		counters:   make([]describedMetric, 0, len(internaldefs.CounterDefs)),
		histograms: make([]describedMetric, 0, len(internaldefs.HistogramDefs)),
		dropped:    prom.NewDesc(internaldefs.EventsDropped.Name, internaldefs.EventsDropped.Help, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, describedMetric{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histograms = append(e.histograms, describedMetric{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return e
}

// Describe implements prom.Collector.
func (e *Exporter) Describe(ch chan<- *prom.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	for _, h := range e.histograms {
		ch <- h.desc
	}
	ch <- e.dropped
}

// Collect implements prom.Collector. Nothing is reported while metrics are
// disabled and no event has been dropped.
func (e *Exporter) Collect(ch chan<- prom.Metric) {
	if e == nil || e.source == nil {
		return
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.EventsDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, c := range e.counters {
		ch <- prom.MustNewConstMetric(c.desc, prom.CounterValue, float64(snapshot.Counters[c.id]))
	}

	for _, h := range e.histograms {
		raw := internaldefs.NormalizeBuckets(snapshot.Histograms[h.id])
		cumulative := internaldefs.CumulativeBuckets(raw)
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]
		ch <- prom.MustNewConstHistogram(h.desc, count, internaldefs.ApproximateSum(raw), buckets)
	}

	ch <- prom.MustNewConstMetric(e.dropped, prom.CounterValue, float64(dropped))
}

// Handler serves the exporter from a private registry, in text or protobuf
// exposition as negotiated.
func (e *Exporter) Handler() http.Handler {
	reg := prom.NewRegistry()
	reg.MustRegister(e)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
