// Package otel exports storefront client metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter for each client counter and, for
// the request latency histogram, one Int64ObservableGauge per cumulative bucket plus
// count and estimated sum gauges. A single callback reads
// [storefront.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
