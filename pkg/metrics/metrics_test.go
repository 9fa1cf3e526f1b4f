package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/workloop/pkg/logging"
)

func staticUsage(bytes uint64) func() (uint64, error) {
	return func() (uint64, error) { return bytes, nil }
}

func TestObserverCounters(t *testing.T) {
	c := NewCollector(staticUsage(0))

	c.LoopIteration()
	c.LoopIteration()
	c.LoopIteration()
	c.JobProcessed()
	c.JobProcessed()
	c.LoopSleep()

	assert.Equal(t, 3.0, testutil.ToFloat64(c.iterations))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.processed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sleeps))
}

func TestMemoryLimitGauge(t *testing.T) {
	c := NewCollector(staticUsage(0))

	c.SetMemoryLimit(512 << 20)
	assert.Equal(t, float64(512<<20), testutil.ToFloat64(c.memLimit))

	// negative ceilings mean "no limit" and publish as 0
	c.SetMemoryLimit(-1)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.memLimit))
}

func TestMetricsEndpoint(t *testing.T) {
	c := NewCollector(staticUsage(4096))
	c.LoopIteration()

	srv := httptest.NewServer(c.Router())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)

	used, ok := families["workloop_memory_used_bytes"]
	require.True(t, ok, "memory gauge missing from scrape")
	assert.Equal(t, 4096.0, used.GetMetric()[0].GetGauge().GetValue())

	_, ok = families["workloop_iterations_total"]
	assert.True(t, ok, "iteration counter missing from scrape")
}

func TestHealthz(t *testing.T) {
	c := NewCollector(staticUsage(0))
	srv := httptest.NewServer(c.Router())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestServeShutdown(t *testing.T) {
	log := logging.NewLogger(logging.FATAL, false)
	c := NewCollector(staticUsage(0))

	srv := Serve("127.0.0.1:0", c, log)
	require.NoError(t, srv.Close())
}
