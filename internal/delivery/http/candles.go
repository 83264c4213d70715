package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"signalcrawler/internal/aggregator"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/service"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/middleware"
	"signalcrawler/pkg/utils"

	"github.com/labstack/echo/v4"
)

const headerWebhookSecret = "X-Webhook-Secret"

func (h *HttpAPIHandler) SetupCandles(base *echo.Group) {
	v1 := base.Group("/v1/candles", middleware.NewRateLimiterMiddleware(h.cfg.Webhook.RatePerSecond, h.cfg.Webhook.RateBurst))
	{
		v1.POST("", h.IngestCandle)
	}
}

// authorized accepts the shared secret from the payload or the header. An
// empty configured secret disables the check.
func (h *HttpAPIHandler) authorized(c echo.Context, bodySecret string) bool {
	want := h.cfg.Webhook.Secret
	if want == "" {
		return true
	}
	got := bodySecret
	if got == "" {
		got = c.Request().Header.Get(headerWebhookSecret)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func isRejectedCandle(err error) bool {
	return errors.Is(err, service.ErrUnknownInstrument) ||
		errors.Is(err, aggregator.ErrInvalidCandle) ||
		errors.Is(err, aggregator.ErrOutOfOrder) ||
		errors.Is(err, aggregator.ErrUnsupportedTimeframe)
}

func (h *HttpAPIHandler) IngestCandle(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CandleWebhookRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "invalid payload", nil)
	}
	if !h.authorized(c, req.Secret) {
		h.log.WarnContext(ctx, "Webhook secret mismatch", logger.StringField("remote_ip", c.RealIP()))
		return respond(c, http.StatusUnauthorized, "invalid webhook secret", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}

	ts, err := utils.ParseTimestamp(req.Time)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}

	result, err := h.service.PipelineService.Ingest(ctx, req.ToEvent(ts))
	switch {
	case isRejectedCandle(err):
		return respond(c, http.StatusBadRequest, err.Error(), result)
	case err != nil:
		h.log.ErrorContext(ctx, "Failed to ingest candle", logger.ErrorField(err), logger.StringField("ticker", req.Ticker))
		return respond(c, http.StatusInternalServerError, "failed to ingest candle", nil)
	}

	return respond(c, http.StatusOK, "Candle ingested", result)
}
