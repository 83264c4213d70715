package http

import (
	"signalcrawler/config"
	"signalcrawler/internal/dto"
	"signalcrawler/internal/service"
	"signalcrawler/pkg/logger"
	"signalcrawler/pkg/metrics"
	"signalcrawler/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	metrics   *metrics.Recorder
}

func NewHttpAPIHandler(
	cfg *config.Config,
	log *logger.Logger,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	recorder *metrics.Recorder,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
		metrics:   recorder,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	if h.cfg.Metrics.Enabled {
		path := h.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		h.echo.Use(middleware.NewMetricsMiddleware(h.metrics, path))
		h.echo.GET(path, echo.WrapHandler(h.metrics.Handler()))
	}

	base := h.echo.Group("/api")
	h.SetupCandles(base)
	h.SetupRecommendations(base)
	h.SetupAccount(base)
	h.SetupMarket(base)
	h.SetupJobs(base)
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, dto.NewBaseResponse(status, message, data))
}
