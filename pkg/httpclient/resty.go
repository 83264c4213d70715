package httpclient

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
)

type restyClient struct {
	client *resty.Client
}

// New builds a resty backed client. Requests that fail with a transport
// error, 429 or 5xx are retried up to opts.RetryCount times.
func New(opts Options) Client {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeaders(opts.Headers).
		SetRetryCount(opts.RetryCount).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	if opts.RetryWait > 0 {
		client.SetRetryWaitTime(opts.RetryWait).SetRetryMaxWaitTime(opts.RetryWait * 4)
	}
	return &restyClient{client: client}
}

func (rc *restyClient) Get(ctx context.Context, path string, query map[string]string, result interface{}) (*Response, error) {
	req := rc.client.R().SetContext(ctx)
	if result != nil {
		req.SetResult(result)
	}
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if resp == nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, err
}
