package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"signalcrawler/config"
	"signalcrawler/internal/dto"
	"signalcrawler/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "MNQ=F", "regularMarketPrice": 21004.5},
      "timestamp": [1764687600, 1764687660, 1764687720],
      "indicators": {"quote": [{
        "open":   [21000.0, null, 21002.0],
        "high":   [21003.0, null, 21006.0],
        "low":    [20998.5, null, 21001.0],
        "close":  [21002.0, null, 21004.5],
        "volume": [120, null, null]
      }]}
    }],
    "error": null
  }
}`

func newTestYahooRepo(t *testing.T, handler http.HandlerFunc) YahooFinanceRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{YahooFinance: config.YahooFinance{
		BaseURL:             srv.URL,
		Timeout:             2 * time.Second,
		MaxRequestPerMinute: 600,
	}}
	return NewYahooFinanceRepository(cfg, logger.NewNop())
}

func TestYahooFinanceRepository_GetChart(t *testing.T) {
	var gotPath, gotInterval, gotRange string
	repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotRange = r.URL.Query().Get("range")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartFixture))
	})

	data, err := repo.GetChart(context.Background(), dto.GetChartParam{Symbol: "MNQ=F"})
	require.NoError(t, err)

	assert.Equal(t, "/MNQ=F", gotPath)
	assert.Equal(t, "1m", gotInterval)
	assert.Equal(t, "1d", gotRange)
	assert.Equal(t, 21004.5, data.MarketPrice)
	require.Len(t, data.Candles, 2)
	assert.Equal(t, 21002.0, data.Candles[0].Close)
	assert.Equal(t, 120.0, data.Candles[0].Volume)
	assert.Equal(t, time.Unix(1764687720, 0).UTC(), data.Candles[1].Timestamp)
	assert.Zero(t, data.Candles[1].Volume)
}

func TestYahooFinanceRepository_GetChartErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non ok status", status: http.StatusTooManyRequests, body: `{}`},
		{name: "api error", status: http.StatusOK, body: `{"chart":{"result":null,"error":{"code":"Not Found"}}}`},
		{name: "empty result", status: http.StatusOK, body: `{"chart":{"result":[],"error":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := repo.GetChart(context.Background(), dto.GetChartParam{Symbol: "MES=F"})
			assert.Error(t, err)
		})
	}
}
