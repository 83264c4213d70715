package middleware

import (
	"errors"
	"net/http"
	"signalcrawler/pkg/metrics"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// NewMetricsMiddleware records request counts and latency per route template,
// so path parameters do not explode label cardinality.
func NewMetricsMiddleware(recorder *metrics.Recorder, skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skip[c.Request().URL.Path]; ok {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			recorder.RecordHTTPRequest(route, c.Request().Method, strconv.Itoa(status), time.Since(start).Seconds())
			return err
		}
	}
}
