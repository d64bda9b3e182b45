package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordAnalysis("enriched", 2*time.Second)
	m.RecordAnalysis("enriched", time.Second)
	m.RecordLookup("not_found")
	m.RecordHistoryWrite(true)
	m.RecordHistoryWrite(false)
	m.RecordHistoryRead(true)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Analyses.WithLabelValues("enriched")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Lookups.WithLabelValues("not_found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HistoryReads.WithLabelValues("ok")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAnalysis("enriched", time.Second)
		m.RecordLookup("found")
		m.RecordHistoryWrite(true)
		m.RecordHistoryRead(false)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordLookup("found")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `snapmed_drug_lookups_total{outcome="found"} 1`)
}
