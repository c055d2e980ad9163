package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convene/convene/internal/metrics"
)

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = c.(prometheus.Metric).Write(m)
	return m.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	_ = gauge.(prometheus.Metric).Write(m)
	return m.GetGauge().GetValue()
}

func getHistogramCount(t *testing.T, hist *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	o, err := hist.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = o.(prometheus.Metric).Write(m)
	return m.GetHistogram().GetSampleCount()
}

// --- HTTP Middleware tests ---

func TestHTTPMiddleware_RecordsRequestMetrics(t *testing.T) {
	handler := metrics.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	server := httptest.NewServer(handler)
	defer server.Close()

	beforeCount := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/other", "200")
	beforeHistCount := getHistogramCount(t, metrics.HTTPRequestDuration, "GET", "/other")

	resp, err := http.Get(server.URL + "/some/asset.js")
	require.NoError(t, err)
	_ = resp.Body.Close()

	afterCount := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/other", "200")
	afterHistCount := getHistogramCount(t, metrics.HTTPRequestDuration, "GET", "/other")

	assert.Equal(t, float64(1), afterCount-beforeCount)
	assert.Equal(t, uint64(1), afterHistCount-beforeHistCount)
}

func TestHTTPMiddleware_NormalizesPaths(t *testing.T) {
	handler := metrics.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	server := httptest.NewServer(handler)
	defer server.Close()

	// /healthz path should be kept as-is.
	beforeHealth := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/healthz", "200")
	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	afterHealth := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/healthz", "200")
	assert.Equal(t, float64(1), afterHealth-beforeHealth)

	// /metrics path should be kept as-is.
	beforeMetrics := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/metrics", "200")
	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	afterMetrics := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/metrics", "200")
	assert.Equal(t, float64(1), afterMetrics-beforeMetrics)

	// Anything else is grouped as /other.
	beforeOther := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/other", "200")
	resp, err = http.Get(server.URL + "/some/random/path")
	require.NoError(t, err)
	_ = resp.Body.Close()
	afterOther := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/other", "200")
	assert.Equal(t, float64(1), afterOther-beforeOther)
}

func TestHTTPMiddleware_Records404(t *testing.T) {
	handler := metrics.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	server := httptest.NewServer(handler)
	defer server.Close()

	beforeCount := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/other", "404")

	resp, err := http.Get(server.URL + "/nonexistent")
	require.NoError(t, err)
	_ = resp.Body.Close()

	afterCount := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/other", "404")
	assert.Equal(t, float64(1), afterCount-beforeCount)
}

// --- Business gauge tests ---

func TestActiveRoomsGauge(t *testing.T) {
	before := getGaugeValue(t, metrics.ActiveRooms)
	metrics.ActiveRooms.Inc()
	after := getGaugeValue(t, metrics.ActiveRooms)
	assert.Equal(t, float64(1), after-before)

	metrics.ActiveRooms.Dec()
	afterDec := getGaugeValue(t, metrics.ActiveRooms)
	assert.Equal(t, before, afterDec)
}

func TestActiveAgentsGauge(t *testing.T) {
	before := getGaugeValue(t, metrics.ActiveAgents)
	metrics.ActiveAgents.Inc()
	after := getGaugeValue(t, metrics.ActiveAgents)
	assert.Equal(t, float64(1), after-before)

	metrics.ActiveAgents.Dec()
	afterDec := getGaugeValue(t, metrics.ActiveAgents)
	assert.Equal(t, before, afterDec)
}

func TestActiveProposalsGauge(t *testing.T) {
	before := getGaugeValue(t, metrics.ActiveProposals)
	metrics.ActiveProposals.Inc()
	after := getGaugeValue(t, metrics.ActiveProposals)
	assert.Equal(t, float64(1), after-before)

	metrics.ActiveProposals.Dec()
	afterDec := getGaugeValue(t, metrics.ActiveProposals)
	assert.Equal(t, before, afterDec)
}

func TestProposalsResolvedTotal_CountsByStatus(t *testing.T) {
	before := getCounterValue(t, metrics.ProposalsResolvedTotal, "approved")
	metrics.ProposalsResolvedTotal.WithLabelValues("approved").Inc()
	after := getCounterValue(t, metrics.ProposalsResolvedTotal, "approved")
	assert.Equal(t, float64(1), after-before)
}

func TestToolInvocationsTotal_CountsByOutcome(t *testing.T) {
	before := getCounterValue(t, metrics.ToolInvocationsTotal, "search", "allowed")
	metrics.ToolInvocationsTotal.WithLabelValues("search", "allowed").Inc()
	after := getCounterValue(t, metrics.ToolInvocationsTotal, "search", "allowed")
	assert.Equal(t, float64(1), after-before)
}

// --- Registry test ---

func TestMetricsRegistered(t *testing.T) {
	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have registered metrics")
}
