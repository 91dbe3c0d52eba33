package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(func() int { return 3 })

	m.BatchReceived(5)
	m.BatchReceived(2)
	m.BatchGenerated()
	m.Suggestion(OutcomeOK, 200*time.Millisecond)
	m.Suggestion(OutcomeError, time.Second)
	m.Suggestion(OutcomeUnavailable, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchesReceived))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.devicesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suggestions.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suggestions.WithLabelValues(OutcomeUnavailable)))

	var h dto.Metric
	require.NoError(t, m.suggestionDuration.Write(&h))
	assert.Equal(t, uint64(2), h.GetHistogram().GetSampleCount())
	assert.InDelta(t, 1.2, h.GetHistogram().GetSampleSum(), 1e-9)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.BatchReceived(1)
	m.BatchGenerated()
	m.Suggestion(OutcomeOK, time.Second)

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rr := httptest.NewRecorder()
	m.WrapHandler("x", h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestWrapHandler_RecordsStatus(t *testing.T) {
	m := New(nil)
	h := m.WrapHandler("/api/v1/batches/{id}", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/batches/x", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/batches/{id}", "404")))
}

func TestHandler_Exposition(t *testing.T) {
	m := New(func() int { return 4 })
	m.BatchReceived(1)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "netpulse_batches_received_total 1"), body)
	assert.Contains(t, body, "netpulse_stored_batches 4")
	assert.Contains(t, body, "go_goroutines")
}
