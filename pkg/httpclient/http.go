package httpclient

import (
	"context"
	"net/http"
	"time"
)

type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Client is the read-only HTTP surface the market data repositories need.
type Client interface {
	Get(ctx context.Context, path string, query map[string]string, result interface{}) (*Response, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Headers    map[string]string
	RetryCount int
	RetryWait  time.Duration
}
