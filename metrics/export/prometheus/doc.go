// Package prometheus exports storefront client metrics to Prometheus.
//
// [Exporter] is a collector that converts each [storefront.MetricsSnapshot] into
// const metrics at scrape time. Counter names are storefront_*_total; the single
// histogram is storefront_request_latency_seconds, whose sum is estimated from
// bucket bounds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     Exporter themselves or mount [Exporter.Handler].
//   - Mutate client state.
package prometheus
