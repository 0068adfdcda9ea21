package server

import (
	"net/http"
	"time"

	"github.com/berfenger/homie2google/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const HEALTH_CHECK_TIMEOUT = 10 * time.Second

type healthCheckResponse struct {
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Version string `json:"version"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/health_check", s.HealthCheckHandler)
	e.POST("/fulfillment/google-home", s.FulfillmentHandler, s.RequireUser)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, HEALTH_CHECK_TIMEOUT).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthCheckResponse{
			Status:  "FAIL",
			Detail:  err.Error(),
			Version: versioninfo.Short(),
		})
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.JSON(http.StatusOK, healthCheckResponse{
			Status:  "OK",
			Version: versioninfo.Short(),
		})
	} else if ok {
		return c.JSON(http.StatusServiceUnavailable, healthCheckResponse{
			Status:  "FAIL",
			Detail:  response.State,
			Version: versioninfo.Short(),
		})
	}
	return c.JSON(http.StatusServiceUnavailable, healthCheckResponse{
		Status:  "FAIL",
		Version: versioninfo.Short(),
	})
}
