package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.RecordCandleIngested("MNQ", 21000)
	r.RecordCandleIngested("MNQ", 21004.25)
	r.RecordCandleRejected("out_of_order")
	r.RecordVerdict("MNQ", "SHORT")
	r.RecordPriceLookup("memory", true)
	r.RecordPriceLookup("yahoo", false)
	r.RecordOutcome("MNQ", "WIN")
	r.RecordRiskAlert("DAILY_LOSS_BLOCK", "critical")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.candlesIngested.WithLabelValues("MNQ")))
	assert.Equal(t, 21004.25, testutil.ToFloat64(r.lastPrice.WithLabelValues("MNQ")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.candlesRejected.WithLabelValues("out_of_order")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.priceLookups.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.priceLookups.WithLabelValues("yahoo", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.riskAlerts.WithLabelValues("DAILY_LOSS_BLOCK", "critical")))
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordVerdict("MES", "STAY_AWAY")
	r.RecordLatency("ingest", 0.002)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `signalcrawler_verdicts_total{instrument="MES",verdict="STAY_AWAY"} 1`)
	assert.Contains(t, string(body), `signalcrawler_operation_duration_seconds_count{operation="ingest"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
