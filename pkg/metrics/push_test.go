package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushFrom(t *testing.T) {
	registry := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_runs_total",
		Help: "Runs",
	}, []string{"command"})
	registry.MustRegister(runs)
	runs.WithLabelValues("deploy-safe").Inc()

	var path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := PushFrom(registry, server.URL, "safe_relay_runner", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "/metrics/job/safe_relay_runner/run_id/run-1", path)
	assert.Contains(t, body, "test_runs_total")
}

func TestPushFromFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := PushFrom(prometheus.NewRegistry(), server.URL, "job", "")
	require.Error(t, err)
}

func TestPushDisabled(t *testing.T) {
	require.NoError(t, Push("", "job", "run"))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PollOutcomes.WithLabelValues("80001", OutcomeResolved))
	PollOutcomes.WithLabelValues("80001", OutcomeResolved).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PollOutcomes.WithLabelValues("80001", OutcomeResolved)))
}
