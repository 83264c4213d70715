package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupMarket(base *echo.Group) {
	v1 := base.Group("/v1")
	{
		v1.GET("/session/tier", h.SessionTier)
		v1.GET("/levels/:instrument", h.Levels)
	}
}

func (h *HttpAPIHandler) SessionTier(c echo.Context) error {
	return respond(c, http.StatusOK, "OK", h.service.MarketService.CurrentTier())
}

func (h *HttpAPIHandler) Levels(c echo.Context) error {
	status, err := h.service.MarketService.LevelsStatus(c.Request().Context(), c.Param("instrument"))
	if err != nil {
		return respond(c, http.StatusNotFound, err.Error(), nil)
	}
	return respond(c, http.StatusOK, "OK", status)
}
