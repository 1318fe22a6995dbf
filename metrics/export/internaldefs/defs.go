package internaldefs

import (
	"github.com/MrEthical07/storefront"
)

// CounterDef names one client counter for export.
type CounterDef struct {
	ID   storefront.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram for export.
type HistogramDef struct {
	ID   storefront.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: storefront.MetricRefreshSuccess, Name: "storefront_refresh_success_total", Help: "Access token refreshes that installed a new token."},
	{ID: storefront.MetricRefreshFailure, Name: "storefront_refresh_failure_total", Help: "Failed access token refreshes."},
	{ID: storefront.MetricRefreshShared, Name: "storefront_refresh_shared_total", Help: "Callers that joined a refresh already in flight."},
	{ID: storefront.MetricAuthRetry, Name: "storefront_auth_retry_total", Help: "Requests retried after a forced refresh."},
	{ID: storefront.MetricAuthFailure, Name: "storefront_auth_failure_total", Help: "Requests still unauthorized after a forced refresh."},
	{ID: storefront.MetricCredentialReset, Name: "storefront_credential_reset_total", Help: "Sessions reset to anonymous."},
	{ID: storefront.MetricLoginSuccess, Name: "storefront_login_success_total", Help: "Successful sign-ins."},
	{ID: storefront.MetricLoginFailure, Name: "storefront_login_failure_total", Help: "Failed sign-ins."},
	{ID: storefront.MetricLogout, Name: "storefront_logout_total", Help: "Logouts."},
	{ID: storefront.MetricCartFetchFailure, Name: "storefront_cart_fetch_failure_total", Help: "Cart loads that failed."},
	{ID: storefront.MetricCartMutation, Name: "storefront_cart_mutation_total", Help: "Successful cart mutations."},
	{ID: storefront.MetricCheckoutStageCompleted, Name: "storefront_checkout_stage_completed_total", Help: "Checkout stage transitions."},
	{ID: storefront.MetricOrderConfirmed, Name: "storefront_order_confirmed_total", Help: "Orders confirmed as paid."},
	{ID: storefront.MetricTransportFailure, Name: "storefront_transport_failure_total", Help: "Requests that failed before a response arrived."},
}

var HistogramDefs = []HistogramDef{
	{ID: storefront.MetricRequestLatency, Name: "storefront_request_latency_seconds", Help: "Gateway request latency, including any refresh and retry."},
}

// EventsDropped describes the dispatcher drop counter, which is not a MetricID.
var EventsDropped = CounterDef{
	Name: "storefront_events_dropped_total",
	Help: "Session events dropped due to dispatcher backpressure.",
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket
// is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that flatten
// buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// ApproximateSum estimates a histogram sum from bucket upper bounds, counting
// overflow samples at the last finite bound. Snapshots carry no exact sum.
func ApproximateSum(raw [8]uint64) float64 {
	var sum float64
	for i, n := range raw {
		bound := HistogramUpperBounds[len(HistogramUpperBounds)-1]
		if i < len(HistogramUpperBounds) {
			bound = HistogramUpperBounds[i]
		}
		sum += float64(n) * bound
	}
	return sum
}
