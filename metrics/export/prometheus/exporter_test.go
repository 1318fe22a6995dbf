package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/storefront"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot storefront.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() storefront.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                       { return f.dropped }

func TestCollectNothingWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: storefront.MetricsSnapshot{
			Counters:   map[storefront.MetricID]uint64{},
			Histograms: map[storefront.MetricID][]uint64{},
		},
	})

	assert.Zero(t, testutil.CollectAndCount(exp))
}

func TestCollectCounters(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: storefront.MetricsSnapshot{
			Counters: map[storefront.MetricID]uint64{
				storefront.MetricLoginSuccess:   7,
				storefront.MetricRefreshSuccess: 2,
			},
		},
		dropped: 3,
	})

	expected := `
# HELP storefront_login_success_total Successful sign-ins.
# TYPE storefront_login_success_total counter
storefront_login_success_total 7
# HELP storefront_events_dropped_total Session events dropped due to dispatcher backpressure.
# TYPE storefront_events_dropped_total counter
storefront_events_dropped_total 3
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"storefront_login_success_total", "storefront_events_dropped_total")
	require.NoError(t, err)
}

func TestHandlerServesHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: storefront.MetricsSnapshot{
			Counters: map[storefront.MetricID]uint64{storefront.MetricLoginSuccess: 1},
			Histograms: map[storefront.MetricID][]uint64{
				storefront.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `storefront_request_latency_seconds_bucket{le="0.005"} 1`)
	assert.Contains(t, out, `storefront_request_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, out, "storefront_request_latency_seconds_count 36")
	assert.Contains(t, out, "storefront_login_success_total 1")
}

func TestExporterLintsClean(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: storefront.MetricsSnapshot{
			Counters: map[storefront.MetricID]uint64{storefront.MetricLogout: 1},
		},
	})

	problems, err := testutil.CollectAndLint(exp)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func BenchmarkCollect(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: storefront.MetricsSnapshot{
			Counters: map[storefront.MetricID]uint64{
				storefront.MetricLoginSuccess:   1000,
				storefront.MetricRefreshSuccess: 800,
				storefront.MetricAuthRetry:      40,
			},
			Histograms: map[storefront.MetricID][]uint64{
				storefront.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(exp)
	}
}
