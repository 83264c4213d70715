package http

import (
	"errors"
	"net/http"
	"signalcrawler/internal/model"
	"signalcrawler/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.GET("", h.ListJobs)
		v1.POST("/run", h.RunJobs)
		v1.POST("/:id/run", h.RunJob)
	}

}

func (h *HttpAPIHandler) ListJobs(c echo.Context) error {
	param := model.GetJobParam{Types: c.QueryParams()["type"]}
	if limit, err := strconv.Atoi(c.QueryParam("history")); err == nil && limit > 0 {
		param.WithTaskHistory = &model.GetTaskExecutionHistoryParam{Limit: &limit}
	}

	jobs, err := h.service.SchedulerService.GetJobSchedule(c.Request().Context(), param)
	if err != nil {
		return respond(c, http.StatusInternalServerError, err.Error(), nil)
	}
	return respond(c, http.StatusOK, "OK", jobs)
}

func (h *HttpAPIHandler) RunJobs(c echo.Context) error {
	if err := h.service.SchedulerService.Execute(c.Request().Context()); err != nil {
		return respond(c, http.StatusInternalServerError, err.Error(), nil)
	}
	return respond(c, http.StatusOK, "Start running jobs", nil)
}

func (h *HttpAPIHandler) RunJob(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusBadRequest, "invalid job id", nil)
	}

	if err := h.service.SchedulerService.RunJobTask(c.Request().Context(), uint(id)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrJobNotFound) {
			status = http.StatusNotFound
		}
		return respond(c, status, err.Error(), nil)
	}
	return respond(c, http.StatusOK, "Job started", nil)
}
