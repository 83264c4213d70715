package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	tests := []struct {
		name       string
		failures   int32
		failStatus int
		retries    int
		wantStatus int
		wantCalls  int32
	}{
		{name: "ok", wantStatus: http.StatusOK, wantCalls: 1},
		{name: "retried server error", failures: 1, failStatus: http.StatusServiceUnavailable, retries: 2, wantStatus: http.StatusOK, wantCalls: 2},
		{name: "retries exhausted", failures: 5, failStatus: http.StatusTooManyRequests, retries: 1, wantStatus: http.StatusTooManyRequests, wantCalls: 2},
		{name: "client error not retried", failures: 5, failStatus: http.StatusNotFound, retries: 3, wantStatus: http.StatusNotFound, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			var agent, symbol string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				agent = r.Header.Get("User-Agent")
				symbol = r.URL.Query().Get("symbol")
				w.Header().Set("Content-Type", "application/json")
				if n <= tt.failures {
					w.WriteHeader(tt.failStatus)
					_, _ = w.Write([]byte(`{}`))
					return
				}
				_, _ = w.Write([]byte(`{"price": 21004.5}`))
			}))
			defer srv.Close()

			client := New(Options{
				BaseURL:    srv.URL,
				Timeout:    time.Second,
				Headers:    map[string]string{"User-Agent": "signalcrawler-test"},
				RetryCount: tt.retries,
				RetryWait:  time.Millisecond,
			})

			var out struct {
				Price float64 `json:"price"`
			}
			resp, err := client.Get(context.Background(), "/quote", map[string]string{"symbol": "MNQ=F"}, &out)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			assert.Equal(t, "signalcrawler-test", agent)
			assert.Equal(t, "MNQ=F", symbol)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, 21004.5, out.Price)
			}
		})
	}
}
