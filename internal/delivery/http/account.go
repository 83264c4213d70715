package http

import (
	"net/http"
	"signalcrawler/internal/dto"
	"signalcrawler/pkg/logger"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAccount(base *echo.Group) {
	v1 := base.Group("/v1/account")
	{
		v1.GET("/status", h.AccountStatus)
		v1.POST("/reset", h.ResetAccount)
	}
}

func (h *HttpAPIHandler) AccountStatus(c echo.Context) error {
	return respond(c, http.StatusOK, "OK", h.service.Guardian.Status())
}

func (h *HttpAPIHandler) ResetAccount(c echo.Context) error {
	var req dto.ResetAccountRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return respond(c, http.StatusBadRequest, "reset must be confirmed", nil)
	}

	ctx := c.Request().Context()
	if err := h.service.Guardian.Reset(ctx); err != nil {
		h.log.ErrorContext(ctx, "Failed to reset account", logger.ErrorField(err))
		return respond(c, http.StatusInternalServerError, "failed to reset account", nil)
	}
	h.log.WarnContext(ctx, "Account state reset", logger.StringField("remote_ip", c.RealIP()))
	return respond(c, http.StatusOK, "Account reset", h.service.Guardian.Status())
}
