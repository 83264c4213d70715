package http

import (
	"net/http"
	"signalcrawler/internal/dto"
	"signalcrawler/pkg/logger"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupRecommendations(base *echo.Group) {
	v1 := base.Group("/v1/recommendations")
	{
		v1.GET("", h.ListRecommendations)
		v1.GET("/stats", h.RecommendationStats)
		v1.GET("/:id", h.GetRecommendation)
	}
}

func (h *HttpAPIHandler) ListRecommendations(c echo.Context) error {
	var param dto.GetRecommendationsParam
	if err := c.Bind(&param); err != nil {
		return respond(c, http.StatusBadRequest, "invalid query", nil)
	}
	if err := h.validator.Struct(param); err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}

	recs, err := h.service.RecommendationService.List(c.Request().Context(), param)
	if err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to list recommendations", logger.ErrorField(err))
		return respond(c, http.StatusInternalServerError, "failed to list recommendations", nil)
	}
	return respond(c, http.StatusOK, "OK", recs)
}

func (h *HttpAPIHandler) GetRecommendation(c echo.Context) error {
	rec, err := h.service.RecommendationService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to get recommendation", logger.ErrorField(err), logger.StringField("id", c.Param("id")))
		return respond(c, http.StatusInternalServerError, "failed to get recommendation", nil)
	}
	if rec == nil {
		return respond(c, http.StatusNotFound, "recommendation not found", nil)
	}
	return respond(c, http.StatusOK, "OK", rec)
}

func (h *HttpAPIHandler) RecommendationStats(c echo.Context) error {
	stats, err := h.service.RecommendationService.Stats(c.Request().Context())
	if err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to aggregate recommendation stats", logger.ErrorField(err))
		return respond(c, http.StatusInternalServerError, "failed to load stats", nil)
	}
	return respond(c, http.StatusOK, "OK", stats)
}
